package engine

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// Start launches the migration tool for a queued or paused job. Admission
// against the concurrency ceiling and the transition to running are atomic
// with respect to concurrent starts. A launch failure is recorded on the
// job, not returned: status and error message are the failure channel for
// anything that happens after admission.
func (e *Engine) Start(jobID string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	job, err := e.store.Get(jobID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusQueued && job.Status != models.StatusPaused {
		return errors.Wrapf(ErrInvalidState, "cannot start migration in %s state", job.Status)
	}

	src, err := e.conns.GetSourceConnection(job.Spec.SourceConnectionID)
	if err != nil {
		return errors.Wrap(err, "resolve source connection")
	}
	tgt, err := e.conns.GetTargetConnection(job.Spec.TargetConnectionID)
	if err != nil {
		return errors.Wrap(err, "resolve target connection")
	}

	e.store.SetStatus(jobID, models.StatusRunning)
	if !tryAdmit(e.countRunning(), e.ceiling) {
		e.store.SetStatus(jobID, models.StatusQueued)
		return errors.Wrapf(ErrConcurrencyLimit, "ceiling is %d", e.ceiling)
	}
	e.store.MarkStarted(jobID, time.Now())

	proc, err := e.launcher.Launch(e.cliPath, buildCommandArgs(job, src, tgt), buildCommandEnv(src, tgt))
	if err != nil {
		e.store.Finalize(jobID, models.StatusFailed,
			fmt.Sprintf("failed to launch migration tool at %s: %v", e.cliPath, err), time.Now())
		e.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to launch migration tool")
		return nil
	}

	e.store.BindProcess(jobID, proc.PID())
	rp := &runningProc{process: proc, done: make(chan struct{})}
	e.procMu.Lock()
	e.procs[jobID] = rp
	e.procMu.Unlock()

	e.logger.Info().Str("job_id", jobID).Int("pid", proc.PID()).Msg("Migration process started")
	go e.run(jobID, rp)
	return nil
}

// countRunning counts jobs holding an admission slot. The candidate has
// already transitioned to running when this runs, so it counts itself.
func (e *Engine) countRunning() int {
	n := 0
	for _, j := range e.store.List() {
		if j.Status == models.StatusRunning {
			n++
		}
	}
	return n
}

// run supervises one process invocation: it drains both output streams to
// EOF, reaps the exit and finalizes the job unless pause or cancel already
// decided its fate.
func (e *Engine) run(jobID string, rp *runningProc) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumeLines(rp.Stdout(), stdoutEvent, func(ev event) {
			if p, ok := e.est.apply(jobID, ev); ok {
				e.broadcast.publish(jobID, p)
			}
		})
	}()
	go func() {
		defer wg.Done()
		consumeLines(rp.Stderr(), stderrEvent, func(ev event) {
			msg := ev.Message
			if msg == "" {
				msg = "unknown error"
			}
			e.store.SetError(jobID, msg)
			e.logger.Warn().Str("job_id", jobID).Str("error", msg).Msg("Migration tool reported error")
		})
	}()
	// Both streams must reach EOF before waiting, or buffered output is lost.
	wg.Wait()

	code, err := rp.Wait()
	close(rp.done)

	e.procMu.Lock()
	if e.procs[jobID] == rp {
		delete(e.procs, jobID)
	}
	e.procMu.Unlock()

	job, gerr := e.store.Get(jobID)
	if gerr != nil {
		return
	}

	switch {
	case err != nil:
		e.store.Finalize(jobID, models.StatusFailed,
			fmt.Sprintf("waiting on migration process: %v", err), time.Now())
		e.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to reap migration process")
	case job.Status != models.StatusRunning:
		// Pause or cancel already took the job out of the running state;
		// this invocation only has to release the process binding.
		e.store.UnbindProcess(jobID)
	case code == 0:
		e.store.Finalize(jobID, models.StatusCompleted, "", time.Now())
		e.logger.Info().Str("job_id", jobID).Msg("Migration completed")
	default:
		e.store.Finalize(jobID, models.StatusFailed,
			fmt.Sprintf("migration tool exited with code %d", code), time.Now())
		e.logger.Warn().Str("job_id", jobID).Int("exit_code", code).Msg("Migration failed")
	}
}

// Pause signals a graceful stop to the running process. The tool is
// expected to exit after the interrupt; no kill is issued here.
func (e *Engine) Pause(jobID string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	job, err := e.store.Get(jobID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusRunning {
		return errors.Wrap(ErrInvalidState, "can only pause running migrations")
	}

	e.store.SetStatus(jobID, models.StatusPaused)
	if rp := e.proc(jobID); rp != nil {
		if err := rp.Signal(os.Interrupt); err != nil {
			e.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to interrupt migration process")
		}
	}
	e.logger.Info().Str("job_id", jobID).Msg("Migration paused")
	return nil
}

// Resume restarts a paused job as a fresh process invocation with the same
// job identity. Whether the migration tool picks up where it stopped or
// re-transfers is a property of the tool, not of the orchestrator.
func (e *Engine) Resume(jobID string) error {
	return e.Start(jobID)
}

// Cancel terminates a job. Its process gets a terminate signal and the
// grace period to exit before being killed; the job lands in cancelled
// regardless of how the process behaves.
func (e *Engine) Cancel(jobID string) error {
	e.opMu.Lock()
	job, err := e.store.Get(jobID)
	if err != nil {
		e.opMu.Unlock()
		return err
	}
	if job.Status.Terminal() {
		e.opMu.Unlock()
		return errors.Wrapf(ErrInvalidState, "cannot cancel migration in %s state", job.Status)
	}
	e.store.Finalize(jobID, models.StatusCancelled, "", time.Now())
	rp := e.proc(jobID)
	e.opMu.Unlock()

	if rp != nil {
		if err := rp.Signal(syscall.SIGTERM); err != nil {
			e.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to signal migration process")
		}
		select {
		case <-rp.done:
		case <-time.After(e.gracePeriod):
			e.logger.Warn().Str("job_id", jobID).Msg("Migration process ignored terminate, killing")
			rp.Kill()
		}
	}
	e.logger.Info().Str("job_id", jobID).Msg("Migration cancelled")
	return nil
}
