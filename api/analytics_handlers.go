package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAnalyticsHandler returns the search analytics dashboard
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	if api.analytics == nil {
		SendError(c, http.StatusNotImplemented, ErrorCodeNotImplemented, "Search analytics are not enabled")
		return
	}
	c.JSON(http.StatusOK, api.analytics.GetDashboardData())
}
