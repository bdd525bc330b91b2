package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// AutoAssignJob tracks one background auto-assignment pass. The HTTP
// endpoint returns immediately with the job id; clients poll the job for
// progress and the final result.
type AutoAssignJob struct {
	ID          string
	OwnerID     int64
	Status      JobStatus
	Processed   int
	Total       int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *facematch.AutoAssignResult

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// JobSnapshot is a point-in-time copy of a job, safe to encode while the
// job keeps running.
type JobSnapshot struct {
	ID          string                      `json:"id"`
	OwnerID     int64                       `json:"owner_id"`
	Status      JobStatus                   `json:"status"`
	Processed   int                         `json:"processed"`
	Total       int                         `json:"total"`
	Error       string                      `json:"error,omitempty"`
	StartedAt   time.Time                   `json:"started_at"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Result      *facematch.AutoAssignResult `json:"result,omitempty"`
}

// Snapshot returns a copy safe for JSON encoding while the job runs.
func (j *AutoAssignJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobSnapshot{
		ID:          j.ID,
		OwnerID:     j.OwnerID,
		Status:      j.Status,
		Processed:   j.Processed,
		Total:       j.Total,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

// SetProgress records how far the pass has come.
func (j *AutoAssignJob) SetProgress(processed, total int) {
	j.mu.Lock()
	j.Processed = processed
	j.Total = total
	j.mu.Unlock()
}

// Start marks the job running and returns its cancellable context.
func (j *AutoAssignJob) Start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.cancel = cancel
	j.mu.Unlock()
	return ctx
}

// Complete records the final result.
func (j *AutoAssignJob) Complete(result facematch.AutoAssignResult) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Result = &result
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Fail records a terminal error. A cancelled job stays cancelled.
func (j *AutoAssignJob) Fail(err error) {
	now := time.Now()
	j.mu.Lock()
	if j.Status != JobStatusCancelled {
		j.Status = JobStatusFailed
		j.Error = err.Error()
	}
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Cancel stops the running pass.
func (j *AutoAssignJob) Cancel() {
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// GetStatus returns the current job status.
func (j *AutoAssignJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*AutoAssignJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*AutoAssignJob),
	}
}

// CreateJob creates a new pending auto-assign job.
func (m *JobManager) CreateJob(id string, ownerID int64) *AutoAssignJob {
	job := &AutoAssignJob{
		ID:        id,
		OwnerID:   ownerID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// CreateJobIfIdle creates a pending job for the owner unless one is already
// pending or running; then it returns nil and the conflicting job instead.
// Check and create happen under one lock, so two concurrent requests cannot
// both start a pass for the same owner.
func (m *JobManager) CreateJobIfIdle(id string, ownerID int64) (*AutoAssignJob, *AutoAssignJob) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if running := m.runningJobLocked(ownerID); running != nil {
		return nil, running
	}

	job := &AutoAssignJob{
		ID:        id,
		OwnerID:   ownerID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.jobs[id] = job
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *AutoAssignJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs of one owner.
func (m *JobManager) ListJobs(ownerID int64) []*AutoAssignJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*AutoAssignJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.OwnerID == ownerID {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// runningJobLocked scans for a pending or running job of the owner.
// Caller holds m.mu.
func (m *JobManager) runningJobLocked(ownerID int64) *AutoAssignJob {
	for _, job := range m.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if s := job.GetStatus(); s == JobStatusPending || s == JobStatusRunning {
			return job
		}
	}
	return nil
}
