package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/notes-discovery/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	if api.jobs == nil {
		sendJobsNotSupported(c)
		return
	}

	job, err := api.jobs.GetJob(c.Param("jobId"))
	if err != nil {
		SendErrorFor(c, "get job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler lists tracked jobs, newest first, optionally filtered by ?status=
func (api *API) ListJobsHandler(c *gin.Context) {
	if api.jobs == nil {
		sendJobsNotSupported(c)
		return
	}

	var statusFilter *model.JobStatus
	if statusParam := c.Query("status"); statusParam != "" {
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobList := api.jobs.ListJobs(statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobList,
		"total": len(jobList),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	if api.jobs == nil {
		sendJobsNotSupported(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": api.jobs.Metrics()})
}

func sendJobsNotSupported(c *gin.Context) {
	SendError(c, http.StatusNotImplemented, ErrorCodeNotImplemented, "Background jobs are not enabled")
}
