package ingestion

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultJobTTL is how long finished and running jobs stay pollable.
const DefaultJobTTL = time.Hour

// JobStatus is the lifecycle state of a background ingestion.
type JobStatus string

const (
	JobStarted    JobStatus = "started"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// Job is a snapshot of one background ingestion.
type Job struct {
	ID        string
	Filename  string
	Status    JobStatus
	Progress  int    // percent, 0-100
	Fragments int    // set on completion
	Error     string // set on failure
	StartedAt time.Time
	UpdatedAt time.Time
}

// JobTracker records background ingestion progress for polling.
type JobTracker struct {
	jobs *cache.Cache
	ttl  time.Duration
	mu   sync.Mutex // serializes read-modify-write updates
}

// NewJobTracker creates a tracker whose entries expire after ttl.
// A non-positive ttl uses DefaultJobTTL.
func NewJobTracker(ttl time.Duration) *JobTracker {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobTracker{
		jobs: cache.New(ttl, ttl/2),
		ttl:  ttl,
	}
}

// Start registers a new job for filename and returns its id.
func (t *JobTracker) Start(filename string) string {
	now := time.Now().UTC()
	nanos := now.UnixNano()
	for {
		id := fmt.Sprintf("%s_%d", filename, nanos)
		job := Job{
			ID:        id,
			Filename:  filename,
			Status:    JobStarted,
			StartedAt: now,
			UpdatedAt: now,
		}
		if t.jobs.Add(id, job, cache.DefaultExpiration) == nil {
			return id
		}
		nanos++
	}
}

// Get returns a snapshot of the job.
func (t *JobTracker) Get(id string) (Job, error) {
	v, ok := t.jobs.Get(id)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return v.(Job), nil
}

// Progress marks the job processing at the given percentage.
func (t *JobTracker) Progress(id string, percent int) {
	t.update(id, func(job *Job) {
		job.Status = JobProcessing
		job.Progress = min(max(percent, 0), 100)
	})
}

// Complete marks the job done with its fragment count.
func (t *JobTracker) Complete(id string, fragments int) {
	t.update(id, func(job *Job) {
		job.Status = JobCompleted
		job.Progress = 100
		job.Fragments = fragments
	})
}

// Fail marks the job failed, keeping the error message.
func (t *JobTracker) Fail(id string, err error) {
	t.update(id, func(job *Job) {
		job.Status = JobError
		job.Error = err.Error()
	})
}

// Len returns the number of jobs still tracked.
func (t *JobTracker) Len() int {
	return t.jobs.ItemCount()
}

func (t *JobTracker) update(id string, fn func(job *Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.jobs.Get(id)
	if !ok {
		return
	}
	job := v.(Job)
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	t.jobs.Set(id, job, cache.DefaultExpiration)
}
