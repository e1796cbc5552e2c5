package engine

import (
	"strconv"
	"strings"

	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// Credentials travel to the migration tool through these environment
// variables so they never show up in process listings or logs.
const (
	envSourcePassword = "SNOWMIGRATE_SOURCE_PASSWORD"
	envTargetPassword = "SNOWMIGRATE_TARGET_PASSWORD"
)

// buildCommandArgs assembles the migrate invocation from non-secret fields
// only. Passwords go through buildCommandEnv.
func buildCommandArgs(job models.Job, src models.SourceConnection, tgt models.SnowflakeConnection) []string {
	tables := make([]string, 0, len(job.Spec.Tables))
	for _, t := range job.Spec.Tables {
		tables = append(tables, t.FullName())
	}

	targetSchema := job.Spec.TargetSchema
	if targetSchema == "" {
		targetSchema = tgt.SchemaName
	}

	return []string{
		"migrate",
		"--source-type", string(src.Type),
		"--source-host", src.Host,
		"--source-port", strconv.Itoa(src.Port),
		"--source-database", src.Database,
		"--source-user", src.Username,
		"--tables", strings.Join(tables, ","),
		"--target-account", tgt.Account,
		"--target-warehouse", tgt.Warehouse,
		"--target-database", tgt.Database,
		"--target-schema", targetSchema,
		"--target-user", tgt.Username,
		"--staging-id", job.Spec.StagingAreaID,
		"--progress-format", "json",
	}
}

// buildCommandEnv returns only the secret entries; the launcher merges them
// over the inherited environment.
func buildCommandEnv(src models.SourceConnection, tgt models.SnowflakeConnection) []string {
	return []string{
		envSourcePassword + "=" + src.Password,
		envTargetPassword + "=" + tgt.Password,
	}
}
