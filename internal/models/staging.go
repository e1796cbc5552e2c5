package models

type StagingType string

const (
	StagingS3       StagingType = "s3"
	StagingADLS     StagingType = "adls"
	StagingGCS      StagingType = "gcs"
	StagingInternal StagingType = "internal"
)

// StagingArea is an intermediate storage location used by the migration
// engine during transfer. Read-only from the orchestrator's point of view.
type StagingArea struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      StagingType `json:"type"`
	Path      string      `json:"path"`
	Available bool        `json:"available"`
}
