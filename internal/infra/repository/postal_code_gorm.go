package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type PostalCodeGormStore struct {
	db *gorm.DB
}

func NewPostalCodeGormStore(db *gorm.DB) *PostalCodeGormStore {
	return &PostalCodeGormStore{db: db}
}

var _ postalcode.Store = (*PostalCodeGormStore)(nil)

func (s *PostalCodeGormStore) All(ctx context.Context) ([]models.PostalCode, error) {
	var out []models.PostalCode
	var batch []models.PostalCode
	err := s.db.WithContext(ctx).
		Order("code").
		FindInBatches(&batch, 5000, func(tx *gorm.DB, _ int) error {
			out = append(out, batch...)
			return nil
		}).Error
	if err != nil {
		return nil, mapErr(err, "postal codes", "")
	}
	return out, nil
}

func (s *PostalCodeGormStore) Upsert(ctx context.Context, rows []models.PostalCode) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"city", "state", "state_abbr", "lat", "lng", "boundary", "source", "updated_at",
			}),
		}).
		CreateInBatches(&rows, 500)
	if res.Error != nil {
		return 0, mapErr(res.Error, "postal codes", rows[0].Code)
	}
	return res.RowsAffected, nil
}

func (s *PostalCodeGormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.PostalCode{}).Count(&n).Error; err != nil {
		return 0, mapErr(err, "postal codes", "")
	}
	return n, nil
}
