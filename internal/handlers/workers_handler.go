package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/dto"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// ======================================================
// HANDLER
// ======================================================

type WorkersHandler struct {
	workers *uc.Workers
	queries *uc.Queries
}

func NewWorkersHandler(workers *uc.Workers, queries *uc.Queries) *WorkersHandler {
	return &WorkersHandler{workers: workers, queries: queries}
}

func (h *WorkersHandler) List(c *gin.Context) {
	workers, err := h.workers.List(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List[models.Worker](c, workers)
}

func (h *WorkersHandler) Create(c *gin.Context) {
	var req dto.CreateWorkerRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := h.workers.Register(c.Request.Context(), uc.RegisterWorkerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if coverage.IsConflict(err) {
		httperr.Write(c, http.StatusConflict, "worker_exists", "a worker with this email already exists")
		return
	}
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.Created(c, w)
}

// Coverage is the worker's current active code set.
func (h *WorkersHandler) Coverage(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	cov, err := h.queries.WorkerCoverage(c.Request.Context(), workerID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, cov)
}

func (h *WorkersHandler) Areas(c *gin.Context) {
	workerID, ok := uintParam(c, "workerId")
	if !ok {
		return
	}
	activeOnly := c.DefaultQuery("active", "false") == "true"

	areas, err := h.queries.ListAreas(c.Request.Context(), workerID, activeOnly)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List[uc.AreaView](c, areas)
}
