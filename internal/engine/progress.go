package engine

import (
	"time"

	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// estimator folds protocol events into a job's progress snapshot and
// derives throughput and ETA from the elapsed run time.
type estimator struct {
	store *jobstore.Store
	now   func() time.Time
}

func newEstimator(store *jobstore.Store) *estimator {
	return &estimator{store: store, now: time.Now}
}

// apply folds one stdout event into the job's snapshot, writes it back to
// the store and returns it. The returned bool is false when the job is
// unknown or the event type carries no progress.
func (e *estimator) apply(jobID string, ev event) (models.Progress, bool) {
	job, err := e.store.Get(jobID)
	if err != nil {
		return models.Progress{}, false
	}

	p := job.Progress
	switch ev.Type {
	case eventProgress:
		p.CurrentTable = ev.Table
		if ev.RowsMigrated != nil {
			p.MigratedRows = *ev.RowsMigrated
		}
		if ev.TotalRows != nil {
			p.TotalRows = *ev.TotalRows
		}
		if ev.Percentage != nil {
			p.CurrentTableProgress = *ev.Percentage
		} else {
			p.CurrentTableProgress = 0
		}
		// Counters reported by the tool may momentarily overshoot.
		if p.TotalRows > 0 && p.MigratedRows > p.TotalRows {
			p.MigratedRows = p.TotalRows
		}
	case eventTableComplete:
		if p.CompletedTables < p.TotalTables {
			p.CompletedTables++
		}
		p.CurrentTable = ""
	case eventComplete:
		p.CompletedTables = p.TotalTables
		p.MigratedRows = p.TotalRows
		p.CurrentTable = ""
	default:
		return p, false
	}

	if p.MigratedRows > 0 && job.StartedAt != nil {
		elapsed := e.now().Sub(*job.StartedAt).Seconds()
		if elapsed > 0 {
			p.RowsPerSecond = float64(p.MigratedRows) / elapsed
			if p.RowsPerSecond > 0 {
				eta := int64(float64(p.TotalRows-p.MigratedRows) / p.RowsPerSecond)
				p.ETASeconds = &eta
			}
		}
	}

	if err := e.store.SetProgress(jobID, p); err != nil {
		return p, false
	}
	return p, true
}
