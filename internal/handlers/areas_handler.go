package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/dto"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// ======================================================
// HANDLER
// ======================================================

// AreasHandler exposes the coverage mutations. Every response is a
// MutationResult or a structured error.
type AreasHandler struct {
	rec     *uc.Reconciler
	queries *uc.Queries
}

func NewAreasHandler(rec *uc.Reconciler, queries *uc.Queries) *AreasHandler {
	return &AreasHandler{rec: rec, queries: queries}
}

func (h *AreasHandler) respond(c *gin.Context, res uc.MutationResult, err error) {
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, res)
}

// ======================================================
// WORKER-SCOPED
// ======================================================

func (h *AreasHandler) CreateFromPolygon(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	var req dto.CreateFromPolygonRequest
	if !bindJSON(c, &req) {
		return
	}
	mode, err := coverage.ParseMode(req.Mode)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	res, err := h.rec.CreateFromPolygon(c.Request.Context(), uc.CreateFromPolygonInput{
		WorkerID: workerID,
		AreaName: req.AreaName,
		Polygon:  req.Polygon,
		Mode:     mode,
	})
	h.respond(c, res, err)
}

func (h *AreasHandler) CreateFromZipList(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	var req dto.CreateFromZipListRequest
	if !bindJSON(c, &req) {
		return
	}
	mode, err := coverage.ParseMode(req.Mode)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	res, err := h.rec.CreateFromZipList(c.Request.Context(), uc.CreateFromZipListInput{
		WorkerID: workerID,
		AreaName: req.AreaName,
		Codes:    req.Codes,
		Mode:     mode,
	})
	h.respond(c, res, err)
}

func (h *AreasHandler) AddZipcodes(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	areaID, ok := uintParam(c, "areaId")
	if !ok {
		return
	}
	var req dto.AddZipcodesRequest
	if !bindJSON(c, &req) {
		return
	}
	mode, err := coverage.ParseMode(req.Mode)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	res, err := h.rec.AddZipcodesToArea(c.Request.Context(), uc.AddZipcodesInput{
		WorkerID: workerID,
		AreaID:   areaID,
		Codes:    req.Codes,
		Mode:     mode,
	})
	h.respond(c, res, err)
}

// RemoveZipcode takes an optional ?area_id= to limit the removal.
func (h *AreasHandler) RemoveZipcode(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}

	in := uc.RemoveZipcodeInput{WorkerID: workerID, Code: c.Param("code")}
	if raw := c.Query("area_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v == 0 {
			httperr.BadRequest(c, "invalid_area_id", "area_id must be a positive integer")
			return
		}
		id := uint(v)
		in.AreaID = &id
	}

	res, err := h.rec.RemoveZipcode(c.Request.Context(), in)
	h.respond(c, res, err)
}

func (h *AreasHandler) Merge(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	var req dto.AreaNameRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.rec.MergeAreas(c.Request.Context(), workerID, req.AreaName)
	h.respond(c, res, err)
}

// ======================================================
// AREA-SCOPED
// ======================================================

func (h *AreasHandler) Rename(c *gin.Context) {
	areaID, ok := uintParam(c, "areaId")
	if !ok {
		return
	}
	var req dto.AreaNameRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.rec.RenameArea(c.Request.Context(), areaID, req.AreaName)
	h.respond(c, res, err)
}

func (h *AreasHandler) Toggle(c *gin.Context) {
	areaID, ok := uintParam(c, "areaId")
	if !ok {
		return
	}
	var req dto.ToggleAreaRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.rec.ToggleAreaActive(c.Request.Context(), areaID, *req.IsActive)
	h.respond(c, res, err)
}

func (h *AreasHandler) Delete(c *gin.Context) {
	areaID, ok := uintParam(c, "areaId")
	if !ok {
		return
	}
	res, err := h.rec.DeleteArea(c.Request.Context(), areaID)
	h.respond(c, res, err)
}

// Hull is computed on demand for manual areas.
func (h *AreasHandler) Hull(c *gin.Context) {
	areaID, ok := uintParam(c, "areaId")
	if !ok {
		return
	}
	res, err := h.queries.AreaHull(c.Request.Context(), areaID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	writeHull(c, res, map[string]any{"area_id": areaID})
}
