package jobstore

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// ErrNotFound indicates the job ID is unknown to the store.
var ErrNotFound = errors.New("job not found")

// Store is the in-memory job registry and the single source of truth for
// job status and progress. Jobs live for the lifetime of the orchestrator
// process; there is no persistence.
//
// All values returned by the store are copies. The mutating methods are
// intended for the process supervisor and progress estimator only; API
// consumers read through Get/List.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*models.Job
	order []string
}

func New() *Store {
	return &Store{jobs: make(map[string]*models.Job)}
}

// Create registers a new queued job for the given spec. Progress starts
// zeroed with the total table count taken from the spec.
func (s *Store) Create(spec models.JobSpec) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &models.Job{
		ID:     uuid.NewString(),
		Spec:   spec,
		Status: models.StatusQueued,
		Progress: models.Progress{
			TotalTables: len(spec.Tables),
		},
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return *job
}

func (s *Store) Get(id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return *job, nil
}

// List returns all jobs in creation order.
func (s *Store) List() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

// ListActive returns jobs that still occupy an admission slot
// (queued, running or paused).
func (s *Store) ListActive() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Job
	for _, id := range s.order {
		if job := s.jobs[id]; job.Status.Active() {
			out = append(out, *job)
		}
	}
	return out
}

// SetStatus moves a job between non-terminal states. Terminal jobs are
// immutable; use Finalize to reach a terminal state.
func (s *Store) SetStatus(id string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = status
	return nil
}

// SetProgress replaces the job's progress snapshot. Updates against a
// terminal job are dropped: once a job has finished, its snapshot is frozen.
func (s *Store) SetProgress(id string, p models.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Progress = p
	return nil
}

// SetError records an error message on the job without touching its status.
func (s *Store) SetError(id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Error = msg
	return nil
}

// MarkStarted sets the start timestamp on the first start only; a resumed
// job keeps its original start time so throughput stays comparable.
func (s *Store) MarkStarted(id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.StartedAt == nil {
		job.StartedAt = &t
	}
	return nil
}

func (s *Store) BindProcess(id string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.PID = pid
	return nil
}

func (s *Store) UnbindProcess(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.PID = 0
	return nil
}

// Finalize moves a job into a terminal status, stamps the completion time
// and clears the process binding. If errMsg is non-empty and the job has no
// error recorded yet, it is set. Finalizing an already terminal job is a
// no-op, so a job terminates exactly once.
func (s *Store) Finalize(id string, status models.JobStatus, errMsg string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = status
	job.CompletedAt = &t
	job.PID = 0
	if errMsg != "" && job.Error == "" {
		job.Error = errMsg
	}
	return nil
}
