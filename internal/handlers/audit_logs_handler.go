package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/timezone"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// ======================================================
// HANDLER
// ======================================================

type AuditLogsHandler struct {
	queries *uc.Queries
	loc     *time.Location
}

// NewAuditLogsHandler reads from/to days in the given report timezone.
func NewAuditLogsHandler(queries *uc.Queries, tz string) *AuditLogsHandler {
	return &AuditLogsHandler{queries: queries, loc: timezone.Location(tz)}
}

// List is newest-first, filtered by worker_id, operation and from/to dates.
func (h *AuditLogsHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	f := coverage.AuditFilter{
		Operation: c.Query("operation"),
		Page:      page,
		Limit:     limit,
	}

	if raw := c.Query("worker_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_worker_id", "worker_id must be a positive integer")
			return
		}
		id := uint(v)
		f.WorkerID = &id
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := timezone.StartOfDay(fromStr, h.loc)
		if err != nil {
			httperr.BadRequest(c, "invalid_from", err.Error())
			return
		}
		f.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		end, err := timezone.EndOfDay(toStr, h.loc)
		if err != nil {
			httperr.BadRequest(c, "invalid_to", err.Error())
			return
		}
		f.To = &end
	}

	logs, total, err := h.queries.AuditLog(c.Request.Context(), f)
	if err != nil {
		httperr.Internal(c, "audit_list_failed", "could not list audit logs")
		return
	}
	httpresp.Page[models.AuditLog](c, logs, page, limit, total)
}
