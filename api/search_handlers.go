package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/notes-discovery/internal/analytics"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

// SearchRequest is the JSON body of POST /search.
type SearchRequest struct {
	Query    string              `json:"query"`
	Filters  model.SearchFilters `json:"filters"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	UserID   string              `json:"user_id,omitempty"`
}

// SearchHandler handles POST /search.
// Request Body: SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	query := services.SearchQuery{
		QueryString: req.Query,
		Filters:     req.Filters,
		Page:        req.Page,
		PageSize:    req.PageSize,
		UserID:      req.UserID,
	}
	if result := ValidateSearchQuery(query); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	api.search(c, query)
}

// SearchQueryHandler handles GET /search with the query and filters as
// query parameters: q, subject_id, university, file_kind, min_rating,
// page, page_size and user_id.
func (api *API) SearchQueryHandler(c *gin.Context) {
	query, result := ParseSearchParams(c)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	api.search(c, query)
}

func (api *API) search(c *gin.Context, query services.SearchQuery) {
	start := time.Now()

	results, err := api.searcher.Search(c.Request.Context(), query)
	if err != nil {
		SendErrorFor(c, "search", err)
		return
	}

	if api.analytics != nil {
		api.analytics.TrackSearchEvent(analytics.EventFromSearch(query, results, time.Since(start)))
	}

	c.JSON(http.StatusOK, results)
}
