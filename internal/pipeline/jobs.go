package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/papertree/internal/extraction"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusTimedOut   JobStatus = "timed_out"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document extraction.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	// Targets limits the run to these steps and their prerequisites. Empty
	// means the whole pipeline.
	Targets []extraction.Step `json:"-"`
	// Force skips the duplicate check.
	Force bool `json:"-"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	result   *extraction.Result
	errors   []string
}

// Progress tracks which pipeline steps have run.
type Progress struct {
	Planned     []string `json:"planned"`
	Completed   []string `json:"completed"`
	CurrentStep string   `json:"current_step,omitempty"`
	FailedStep  string   `json:"failed_step,omitempty"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job with a fresh time-ordered id.
func NewJob(docID, filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.Must(uuid.NewV7()).String(),
		DocID:       docID,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of jobs held.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// FindCompleted returns a completed job, other than exclude, that extracted
// the same content and ran at least the steps in need.
func (s *JobStore) FindCompleted(contentHash, exclude string, need extraction.StepSet) *Job {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.ID != exclude && j.ContentHash == contentHash {
			jobs = append(jobs, j)
		}
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.mu.Lock()
		ok := j.Status == StatusCompleted && j.result != nil && j.result.Done.ContainsAll(need)
		j.mu.Unlock()
		if ok {
			return j
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPlan records the steps the run will execute.
func (j *Job) SetPlan(steps []extraction.Step) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Planned = stepNames(steps)
	j.UpdatedAt = time.Now()
}

// StartStep marks step as running.
func (j *Job) StartStep(step extraction.Step) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CurrentStep = step.String()
	j.Phase = step.String()
	j.UpdatedAt = time.Now()
}

// FinishStep marks step as done, or failed when err is non-nil.
func (j *Job) FinishStep(step extraction.Step, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CurrentStep = ""
	if err != nil {
		j.Progress.FailedStep = step.String()
	} else {
		j.Progress.Completed = append(j.Progress.Completed, step.String())
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the extraction result and releases the input bytes.
func (j *Job) SetResult(res *extraction.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// MarkDuplicate finishes the job as a repeat of an earlier extraction. res
// is the earlier result when it is still held in memory.
func (j *Job) MarkDuplicate(of string, res *extraction.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusDupSkipped
	j.Phase = "dedup"
	j.DuplicateOf = of
	j.result = res
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Result returns the extraction result, which may be partial, or nil when
// the job has not finished.
func (j *Job) Result() *extraction.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	nonNil := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return append([]string(nil), s...)
	}
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		DuplicateOf: j.DuplicateOf,
		Progress: Progress{
			Planned:     nonNil(j.Progress.Planned),
			Completed:   nonNil(j.Progress.Completed),
			CurrentStep: j.Progress.CurrentStep,
			FailedStep:  j.Progress.FailedStep,
			Errors:      nonNil(j.Progress.Errors),
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func stepNames(steps []extraction.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.String()
	}
	return out
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
