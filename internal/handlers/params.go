package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/httperr"
	"github.com/BruksfildServices01/homeservices-coverage/internal/httpresp"
	uc "github.com/BruksfildServices01/homeservices-coverage/internal/usecase/coverage"
)

// uintParam reads a positive numeric path parameter and writes a 400 when
// it is not one.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		httperr.BadRequest(c, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return uint(v), true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return false
	}
	return true
}

// writeHull answers with the HullResult, or with a GeoJSON Feature when the
// caller asks for ?format=geojson.
func writeHull(c *gin.Context, res uc.HullResult, props map[string]any) {
	switch c.DefaultQuery("format", "json") {
	case "json":
		httpresp.OK(c, res)
	case "geojson":
		if !res.Derivable {
			httperr.Write(c, http.StatusUnprocessableEntity, "hull_not_derivable", "fewer than 3 distinct locations")
			return
		}
		if props == nil {
			props = map[string]any{}
		}
		props["source"] = res.Source
		props["point_count"] = res.PointCount
		if len(res.Dropped) > 0 {
			props["dropped"] = res.Dropped
		}
		c.JSON(http.StatusOK, res.Polygon.Feature(props))
	default:
		httperr.BadRequest(c, "invalid_format", "format must be json or geojson")
	}
}
