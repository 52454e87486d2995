package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gcbaptista/notes-discovery/internal/analytics"
	"github.com/gcbaptista/notes-discovery/internal/jobs"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

// Dependencies are the services the handlers call. Jobs and Analytics are
// optional; without Jobs every corpus refresh runs inline.
type Dependencies struct {
	Searcher  services.Searcher
	Corpus    services.CorpusManager
	Ledger    services.Ledger
	Jobs      *jobs.Manager
	Analytics *analytics.Service
	Logger    *logger.Logger
}

// API holds dependencies for API handlers.
type API struct {
	searcher  services.Searcher
	corpus    services.CorpusManager
	ledger    services.Ledger
	jobs      *jobs.Manager
	analytics *analytics.Service
	log       *logger.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(deps Dependencies) *API {
	return &API{
		searcher:  deps.Searcher,
		corpus:    deps.Corpus,
		ledger:    deps.Ledger,
		jobs:      deps.Jobs,
		analytics: deps.Analytics,
		log:       logger.OrNop(deps.Logger).With("component", "api"),
	}
}

// SetupRoutes defines all the API routes of the discovery service.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	apiHandler := NewAPI(deps)

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	router.GET("/search", apiHandler.SearchQueryHandler)
	router.POST("/search", apiHandler.SearchHandler)

	corpusRoutes := router.Group("/corpus")
	{
		corpusRoutes.GET("", apiHandler.GetCorpusHandler)              // Describe the current snapshot
		corpusRoutes.POST("/refresh", apiHandler.RefreshCorpusHandler) // Rebuild now; ?async=true runs it as a job
	}

	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("", apiHandler.ListJobsHandler)
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler)
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)
	}

	accountRoutes := router.Group("/accounts/:userId")
	{
		accountRoutes.POST("", apiHandler.OpenAccountHandler)                // Signup hook: open with a starting balance
		accountRoutes.GET("/balance", apiHandler.GetBalanceHandler)          // Current balance
		accountRoutes.POST("/redemptions", apiHandler.RedeemHandler)         // Unlock a premium item
		accountRoutes.GET("/redemptions", apiHandler.ListRedemptionsHandler) // Unlocked items, oldest first
	}
}

// HealthCheckHandler reports liveness and whether the corpus is degraded.
// It never rebuilds the corpus.
func (api *API) HealthCheckHandler(c *gin.Context) {
	status := "healthy"
	info := api.corpus.CorpusInfo()
	if info.Degraded {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"service":   "notes-discovery",
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		"corpus":    info,
	})
}

// GetCorpusHandler describes the current corpus snapshot
func (api *API) GetCorpusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.corpus.CorpusInfo())
}

// RefreshCorpusHandler rebuilds the corpus snapshot. With async=true the
// rebuild runs as a background job and the response carries its ID.
func (api *API) RefreshCorpusHandler(c *gin.Context) {
	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))

	if async && api.jobs != nil {
		corpus := api.corpus
		jobID, err := api.jobs.Submit(model.JobTypeCorpusRefresh, map[string]string{"trigger": "api"},
			func(ctx context.Context, _ string) (interface{}, error) {
				return corpus.Refresh(ctx)
			})
		if err != nil {
			SendInternalError(c, "corpus refresh job", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Corpus refresh started",
			"job_id":  jobID,
		})
		return
	}

	info, err := api.corpus.Refresh(c.Request.Context())
	if err != nil {
		SendErrorFor(c, "corpus refresh", err)
		return
	}
	c.JSON(http.StatusOK, info)
}
