package models

import (
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
)

type ServiceArea struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	WorkerID uint   `gorm:"index;not null" json:"worker_id"`
	Worker   Worker `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	AreaName string `gorm:"size:120;not null" json:"area_name"`
	// polygon | manual
	Kind    string   `gorm:"size:16;not null;default:'manual'" json:"kind"`
	Polygon geo.Ring `gorm:"serializer:json;type:jsonb" json:"polygon"`

	IsActive  bool       `gorm:"not null;default:true;index" json:"is_active"`
	RetiredAt *time.Time `json:"retired_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ServiceZipcode struct {
	ID uint `gorm:"primaryKey" json:"id"`

	WorkerID      uint        `gorm:"not null;uniqueIndex:ux_service_zipcode" json:"worker_id"`
	ServiceAreaID uint        `gorm:"not null;uniqueIndex:ux_service_zipcode;index" json:"service_area_id"`
	ServiceArea   ServiceArea `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Code          string      `gorm:"size:5;not null;uniqueIndex:ux_service_zipcode;index" json:"code"`

	// bit flags, see coverage.Provenance
	Provenance uint8 `gorm:"not null;default:0" json:"provenance"`

	CreatedAt time.Time `json:"created_at"`
}
