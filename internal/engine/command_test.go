package engine

import (
	"strings"
	"testing"

	"github.com/snowmigrate/snowmigrate-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func commandFixtures() (models.Job, models.SourceConnection, models.SnowflakeConnection) {
	job := models.Job{
		ID: "job-1",
		Spec: models.JobSpec{
			SourceConnectionID: "src",
			TargetConnectionID: "tgt",
			StagingAreaID:      "s3-default",
			Tables: []models.TableSelection{
				{SchemaName: "public", TableName: "users"},
				{SchemaName: "sales", TableName: "orders"},
			},
		},
	}
	src := models.SourceConnection{
		Type:     models.SourcePostgres,
		Host:     "db.local",
		Port:     5432,
		Database: "app",
		Username: "reader",
		Password: "hunter2",
	}
	tgt := models.SnowflakeConnection{
		Account:    "acct-123",
		Warehouse:  "LOAD_WH",
		Database:   "ANALYTICS",
		SchemaName: "PUBLIC",
		Username:   "loader",
		Password:   "sn0wflake",
	}
	return job, src, tgt
}

func TestBuildCommandArgs(t *testing.T) {
	job, src, tgt := commandFixtures()

	args := buildCommandArgs(job, src, tgt)

	assert.Equal(t, []string{
		"migrate",
		"--source-type", "postgres",
		"--source-host", "db.local",
		"--source-port", "5432",
		"--source-database", "app",
		"--source-user", "reader",
		"--tables", "public.users,sales.orders",
		"--target-account", "acct-123",
		"--target-warehouse", "LOAD_WH",
		"--target-database", "ANALYTICS",
		"--target-schema", "PUBLIC",
		"--target-user", "loader",
		"--staging-id", "s3-default",
		"--progress-format", "json",
	}, args)
}

func TestBuildCommandArgsSchemaOverride(t *testing.T) {
	job, src, tgt := commandFixtures()
	job.Spec.TargetSchema = "RAW"

	args := buildCommandArgs(job, src, tgt)
	assert.Contains(t, strings.Join(args, " "), "--target-schema RAW")
}

func TestArgsNeverCarrySecrets(t *testing.T) {
	job, src, tgt := commandFixtures()

	for _, arg := range buildCommandArgs(job, src, tgt) {
		assert.NotContains(t, arg, src.Password)
		assert.NotContains(t, arg, tgt.Password)
	}
}

func TestBuildCommandEnv(t *testing.T) {
	_, src, tgt := commandFixtures()

	env := buildCommandEnv(src, tgt)
	assert.Equal(t, []string{
		"SNOWMIGRATE_SOURCE_PASSWORD=hunter2",
		"SNOWMIGRATE_TARGET_PASSWORD=sn0wflake",
	}, env)
}
