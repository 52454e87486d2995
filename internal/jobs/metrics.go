package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gcbaptista/notes-discovery/model"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_jobs_transitions_total",
			Help: "Background job status transitions by job type and new status.",
		},
		[]string{"type", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notes_job_duration_seconds",
			Help:    "Background job execution time by job type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notes_jobs_active",
		Help: "Background jobs currently executing.",
	})
)

// MetricsData summarizes the jobs the manager currently remembers
type MetricsData struct {
	JobsTracked          int                     `json:"jobs_tracked"`
	JobsCompleted        int                     `json:"jobs_completed"`
	JobsFailed           int                     `json:"jobs_failed"`
	AverageExecutionTime time.Duration           `json:"average_execution_time_ns"`
	JobsByType           map[model.JobType]int   `json:"jobs_by_type"`
	JobsByStatus         map[model.JobStatus]int `json:"jobs_by_status"`
	SuccessRate          float64                 `json:"success_rate"` // 0.0 to 1.0; 1.0 with no finished jobs
	CurrentWorkload      int                     `json:"current_workload"`
}

// Metrics computes a summary over the tracked jobs
func (m *Manager) Metrics() MetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := MetricsData{
		JobsTracked:  len(m.jobs),
		JobsByType:   make(map[model.JobType]int),
		JobsByStatus: make(map[model.JobStatus]int),
		SuccessRate:  1.0,
	}

	var total time.Duration
	for _, job := range m.jobs {
		data.JobsByType[job.Type]++
		data.JobsByStatus[job.Status]++
		switch job.Status {
		case model.JobStatusCompleted:
			data.JobsCompleted++
			if job.StartedAt != nil && job.CompletedAt != nil {
				total += job.CompletedAt.Sub(*job.StartedAt)
			}
		case model.JobStatusFailed:
			data.JobsFailed++
		case model.JobStatusPending, model.JobStatusRunning:
			data.CurrentWorkload++
		}
	}

	if data.JobsCompleted > 0 {
		data.AverageExecutionTime = total / time.Duration(data.JobsCompleted)
	}
	if finished := data.JobsCompleted + data.JobsFailed; finished > 0 {
		data.SuccessRate = float64(data.JobsCompleted) / float64(finished)
	}
	return data
}
