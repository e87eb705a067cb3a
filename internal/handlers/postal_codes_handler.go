package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/dto"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
	"github.com/BruksfildServices01/homeservices-coverage/internal/validators"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

type PostalCodesHandler struct {
	importer *uc.ImportPostalCodes
	registry *postalcode.Registry
}

func NewPostalCodesHandler(importer *uc.ImportPostalCodes, registry *postalcode.Registry) *PostalCodesHandler {
	return &PostalCodesHandler{importer: importer, registry: registry}
}

// Import accepts one chunk of a larger upload and reports its tally.
func (h *PostalCodesHandler) Import(c *gin.Context) {
	var req dto.ImportChunkRequest
	if !bindJSON(c, &req) {
		return
	}

	var boundaries []byte
	if len(req.Boundaries) > 0 && string(req.Boundaries) != "null" {
		boundaries = req.Boundaries
	}

	res, err := h.importer.Execute(c.Request.Context(), uc.ImportChunkInput{
		JobID:      req.JobID,
		Records:    req.Records,
		Boundaries: boundaries,
		ChunkIndex: req.ChunkIndex,
		ChunkCount: req.ChunkCount,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, res)
}

func (h *PostalCodesHandler) Get(c *gin.Context) {
	code, ok := validators.NormalizeZipcode(c.Param("code"))
	if !ok {
		httperr.BadRequest(c, "invalid_code", "postal code must have 5 digits")
		return
	}
	p, found := h.registry.Get(code)
	if !found {
		httperr.NotFound(c, "postal_code_not_found", "postal code "+code+" is not in the dataset")
		return
	}
	httpresp.OK(c, p)
}
