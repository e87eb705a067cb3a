package dto

import (
	"encoding/json"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

// ======================================================
// WORKERS
// ======================================================

type CreateWorkerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// ======================================================
// AREA MUTATIONS
// ======================================================

type CreateFromPolygonRequest struct {
	AreaName string      `json:"area_name" binding:"required"`
	Polygon  []geo.Point `json:"polygon" binding:"required"`
	// append | replace_all, defaults to append
	Mode string `json:"mode"`
}

type CreateFromZipListRequest struct {
	AreaName string   `json:"area_name" binding:"required"`
	Codes    []string `json:"codes" binding:"required"`
	Mode     string   `json:"mode"`
}

type AddZipcodesRequest struct {
	Codes []string `json:"codes" binding:"required"`
	Mode  string   `json:"mode"`
}

type AreaNameRequest struct {
	AreaName string `json:"area_name" binding:"required"`
}

type ToggleAreaRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ======================================================
// PREVIEWS
// ======================================================

type ResolveRequest struct {
	Polygon []geo.Point `json:"polygon" binding:"required"`
}

// HullRequest takes either codes or raw points.
type HullRequest struct {
	Codes  []string    `json:"codes"`
	Points []geo.Point `json:"points"`
}

// ======================================================
// POSTAL CODES
// ======================================================

type ImportChunkRequest struct {
	JobID      string              `json:"job_id"`
	Records    []postalcode.Record `json:"records"`
	Boundaries json.RawMessage     `json:"boundaries"`
	ChunkIndex int                 `json:"chunk_index"`
	ChunkCount int                 `json:"chunk_count"`
}
