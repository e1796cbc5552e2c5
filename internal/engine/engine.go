package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// ConnectionResolver resolves the connection descriptors a job spec refers
// to. Implemented by the connections manager.
type ConnectionResolver interface {
	GetSourceConnection(id string) (models.SourceConnection, error)
	GetTargetConnection(id string) (models.SnowflakeConnection, error)
}

// Options configure the engine.
type Options struct {
	// CLIPath is the migration tool binary, e.g. /usr/local/bin/migrate-tool.
	CLIPath string
	// MaxConcurrent is the admission ceiling for running/queued jobs.
	MaxConcurrent int
	// GracePeriod is how long a cancelled process gets to exit before it is
	// killed.
	GracePeriod time.Duration
	// PollInterval is the subscriber wake-up interval.
	PollInterval time.Duration
}

// Engine supervises migration jobs: it admits them against the concurrency
// ceiling, launches the external migration tool with credentials passed
// through the environment, consumes its progress streams and finalizes job
// status when the process exits.
type Engine struct {
	store     *jobstore.Store
	conns     ConnectionResolver
	launcher  launcher
	est       *estimator
	broadcast *broadcaster
	logger    zerolog.Logger

	cliPath      string
	ceiling      int
	gracePeriod  time.Duration
	pollInterval time.Duration

	// opMu serializes job state transitions, including the admission
	// check-then-admit step across concurrent starts.
	opMu sync.Mutex

	procMu sync.Mutex
	procs  map[string]*runningProc

	stagingMu    sync.Mutex
	stagingAreas []models.StagingArea
}

// runningProc pairs a process with a channel closed once its exit has been
// reaped, so cancellation can wait out the grace period.
type runningProc struct {
	process
	done chan struct{}
}

func New(store *jobstore.Store, conns ConnectionResolver, logger zerolog.Logger, opts Options) *Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Engine{
		store:        store,
		conns:        conns,
		launcher:     execLauncher{},
		est:          newEstimator(store),
		broadcast:    newBroadcaster(),
		logger:       logger.With().Str("component", "engine").Logger(),
		cliPath:      opts.CLIPath,
		ceiling:      opts.MaxConcurrent,
		gracePeriod:  opts.GracePeriod,
		pollInterval: opts.PollInterval,
		procs:        make(map[string]*runningProc),
	}
}

// CreateJob registers a new queued job for the spec.
func (e *Engine) CreateJob(spec models.JobSpec) models.Job {
	job := e.store.Create(spec)
	e.logger.Info().Str("job_id", job.ID).Int("tables", len(spec.Tables)).Msg("Migration job created")
	return job
}

func (e *Engine) Job(id string) (models.Job, error) { return e.store.Get(id) }

func (e *Engine) Jobs() []models.Job { return e.store.List() }

func (e *Engine) ActiveJobs() []models.Job { return e.store.ListActive() }

// SubscribeProgress returns a stream of progress snapshots for one job.
// The channel closes once no snapshot has arrived within the poll interval
// and the job is no longer queued or running. Every subscriber receives
// every snapshot independently.
func (e *Engine) SubscribeProgress(ctx context.Context, jobID string) (<-chan models.Progress, error) {
	if _, err := e.store.Get(jobID); err != nil {
		return nil, err
	}

	in := e.broadcast.register(jobID)
	out := make(chan models.Progress)
	go func() {
		defer close(out)
		defer e.broadcast.unregister(jobID, in)
		for {
			select {
			case p := <-in:
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			case <-time.After(e.pollInterval):
				job, err := e.store.Get(jobID)
				if err != nil {
					return
				}
				if job.Status != models.StatusRunning && job.Status != models.StatusQueued {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (e *Engine) proc(jobID string) *runningProc {
	e.procMu.Lock()
	defer e.procMu.Unlock()
	return e.procs[jobID]
}
