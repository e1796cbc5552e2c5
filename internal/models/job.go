package models

import "time"

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are immutable
// and are retained only for historical listing.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the job still occupies an admission slot.
func (s JobStatus) Active() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusPaused:
		return true
	}
	return false
}

// TableSelection is one table picked for migration. Immutable once attached
// to a job.
type TableSelection struct {
	SchemaName string `json:"schema_name"`
	TableName  string `json:"table_name"`
	RowCount   *int64 `json:"row_count,omitempty"`
}

// FullName returns the qualified schema.table name used on the engine
// command line.
func (t TableSelection) FullName() string {
	return t.SchemaName + "." + t.TableName
}

// JobSpec is the immutable request a job was created from.
type JobSpec struct {
	SourceConnectionID string           `json:"source_connection_id"`
	TargetConnectionID string           `json:"target_connection_id"`
	StagingAreaID      string           `json:"staging_area_id"`
	Tables             []TableSelection `json:"tables"`
	TargetSchema       string           `json:"target_schema,omitempty"`
}

// Progress is the latest known counters for a job.
type Progress struct {
	TotalTables          int     `json:"total_tables"`
	CompletedTables      int     `json:"completed_tables"`
	CurrentTable         string  `json:"current_table,omitempty"`
	CurrentTableProgress float64 `json:"current_table_progress"`
	TotalRows            int64   `json:"total_rows"`
	MigratedRows         int64   `json:"migrated_rows"`
	RowsPerSecond        float64 `json:"rows_per_second"`
	ETASeconds           *int64  `json:"eta_seconds,omitempty"`
}

// Percentage is the overall completion estimate. Row counts win when the
// engine has reported a total; otherwise completed tables are used.
func (p Progress) Percentage() float64 {
	if p.TotalRows > 0 {
		return float64(p.MigratedRows) / float64(p.TotalRows) * 100
	}
	if p.TotalTables > 0 {
		return float64(p.CompletedTables) / float64(p.TotalTables) * 100
	}
	return 0
}

// Job is one migration request. Values handed out by the store are copies;
// all mutation goes through store methods.
type Job struct {
	ID          string     `json:"id"`
	Spec        JobSpec    `json:"spec"`
	Status      JobStatus  `json:"status"`
	Progress    Progress   `json:"progress"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PID         int        `json:"pid,omitempty"`
}

// Duration returns elapsed wall time since the first start, up to completion
// for finished jobs.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(*j.StartedAt)
}
