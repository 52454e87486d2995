// Package jobs runs long operations, such as corpus refreshes, in the
// background and tracks their status for the API.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/model"
)

// Func is the body of a job. Its result is stored on the job when it succeeds.
type Func func(ctx context.Context, jobID string) (interface{}, error)

// Manager handles background job execution and tracking
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	workers chan struct{} // Limits concurrent jobs
	log     *logger.Logger
	now     func() time.Time

	ctx      context.Context // cancelled by Stop
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	retention time.Duration
}

// NewManager creates a job manager running at most maxWorkers jobs at once.
// Finished jobs are forgotten after retention.
func NewManager(maxWorkers int, retention time.Duration, log *logger.Logger) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:      make(map[string]*model.Job),
		workers:   make(chan struct{}, maxWorkers),
		log:       logger.OrNop(log).With("component", "jobs"),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		retention: retention,
	}
}

// Start begins the periodic cleanup of finished jobs
func (m *Manager) Start() {
	m.log.Info("Job manager started", "max_workers", cap(m.workers), "retention", m.retention)
	if m.retention <= 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.retention / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupOldJobs(m.retention)
			case <-m.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels running jobs and waits for them to return
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.log.Info("Job manager stopped")
	})
}

// CreateJob registers a pending job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		CreatedAt: m.now(),
		Metadata:  metadata,
	}
	m.jobs[job.ID] = job
	jobsTotal.WithLabelValues(string(jobType), string(model.JobStatusPending)).Inc()
	m.log.Debug("Created job", "job_id", job.ID, "type", job.Type)
	return job.ID
}

// Submit creates a job and starts it in one step.
func (m *Manager) Submit(jobType model.JobType, metadata map[string]string, fn Func) (string, error) {
	jobID := m.CreateJob(jobType, metadata)
	if err := m.ExecuteJob(jobID, fn); err != nil {
		return "", err
	}
	return jobID, nil
}

// GetJob returns a copy of the job with the given ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns all jobs, newest first, optionally filtered by status
func (m *Manager) ListJobs(status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	result := make([]*model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if status == nil || job.Status == *status {
			result = append(result, copyJob(job))
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ExecuteJob runs fn for a pending job in the background. It returns once
// the job is scheduled; the job waits for a free worker slot.
func (m *Manager) ExecuteJob(jobID string, fn Func) error {
	if m.ctx.Err() != nil {
		m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager is shutting down", nil)
		return fmt.Errorf("job manager is shutting down")
	}

	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	jobType := job.Type
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager is shutting down", nil)
			return
		}
		defer func() { <-m.workers }()

		m.markRunning(jobID)
		activeJobs.Inc()
		defer activeJobs.Dec()

		start := time.Now()
		result, err := fn(m.ctx, jobID)
		elapsed := time.Since(start)
		jobDuration.WithLabelValues(string(jobType)).Observe(elapsed.Seconds())

		if err != nil {
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error(), nil)
			m.log.Warn("Job failed", "job_id", jobID, "type", jobType, "elapsed", elapsed, "error", err)
			return
		}
		m.updateJobStatus(jobID, model.JobStatusCompleted, "", result)
		m.log.Info("Job completed", "job_id", jobID, "type", jobType, "elapsed", elapsed)
	}()

	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) markRunning(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	job.Status = model.JobStatusRunning
	now := m.now()
	job.StartedAt = &now
	jobsTotal.WithLabelValues(string(job.Type), string(model.JobStatusRunning)).Inc()
}

func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string, result interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	job.Status = status
	job.Error = errorMsg
	job.Result = result
	if status.Finished() {
		now := m.now()
		job.CompletedAt = &now
	}
	jobsTotal.WithLabelValues(string(job.Type), string(status)).Inc()
}

// CleanupOldJobs removes finished jobs that completed more than maxAge ago
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}
	if cleaned > 0 {
		m.log.Debug("Cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	if job.Metadata != nil {
		jobCopy.Metadata = make(map[string]string, len(job.Metadata))
		for k, v := range job.Metadata {
			jobCopy.Metadata[k] = v
		}
	}
	return &jobCopy
}
