package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
)

const pgUniqueViolation = "23505"

// mapErr translates driver errors into the coverage error taxonomy.
func mapErr(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return coverage.NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &coverage.ConflictError{Err: err}
	}
	return fmt.Errorf("%s: %w", entity, err)
}
