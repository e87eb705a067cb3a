package models

import (
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
)

const (
	SourceOfficialBoundary = "official-boundary"
	SourceCentroidOnly     = "centroid-only"
	SourceGeocoded         = "geocoded"
)

type PostalCode struct {
	Code      string `gorm:"primaryKey;size:5" json:"code"`
	City      string `gorm:"size:100" json:"city"`
	State     string `gorm:"size:60" json:"state"`
	StateAbbr string `gorm:"size:2;index" json:"state_abbr"`

	Lat float64 `gorm:"not null" json:"lat"`
	Lng float64 `gorm:"not null" json:"lng"`

	Boundary []geo.Ring `gorm:"serializer:json;type:jsonb" json:"boundary,omitempty"`
	Source   string     `gorm:"size:20;not null" json:"source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p PostalCode) Centroid() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}
