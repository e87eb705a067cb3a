package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/dto"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// ======================================================
// HANDLER
// ======================================================

type CoverageHandler struct {
	resolver   *uc.Resolver
	hulls      *uc.HullSynthesizer
	aggregator *uc.Aggregator
	queries    *uc.Queries
}

func NewCoverageHandler(
	resolver *uc.Resolver,
	hulls *uc.HullSynthesizer,
	aggregator *uc.Aggregator,
	queries *uc.Queries,
) *CoverageHandler {
	return &CoverageHandler{
		resolver:   resolver,
		hulls:      hulls,
		aggregator: aggregator,
		queries:    queries,
	}
}

// Resolve previews which codes a polygon covers without saving anything.
func (h *CoverageHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.resolver.Resolve(c.Request.Context(), req.Polygon)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, res)
}

func (h *CoverageHandler) Hull(c *gin.Context) {
	var req dto.HullRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Codes) == 0 && len(req.Points) == 0 {
		httperr.BadRequest(c, "invalid_request", "codes or points are required")
		return
	}

	var (
		res uc.HullResult
		err error
	)
	if len(req.Codes) > 0 {
		res, err = h.hulls.FromCodes(c.Request.Context(), req.Codes)
	} else {
		res, err = h.hulls.FromPoints(c.Request.Context(), req.Points)
	}
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	writeHull(c, res, nil)
}

func (h *CoverageHandler) Stats(c *gin.Context) {
	stats, err := h.aggregator.Stats(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, stats)
}

// WorkersForCode serves booking availability: who actively covers a code.
func (h *CoverageHandler) WorkersForCode(c *gin.Context) {
	workers, err := h.queries.WorkersForCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List[models.Worker](c, workers)
}
