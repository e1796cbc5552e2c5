package models

import "time"

type SourceType string

const (
	SourcePostgres  SourceType = "postgres"
	SourceMySQL     SourceType = "mysql"
	SourceOracle    SourceType = "oracle"
	SourceSQLServer SourceType = "sqlserver"
)

// SourceConnection describes a source database. The password is kept in
// memory only and is never serialized or placed on a command line.
type SourceConnection struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      SourceType `json:"type"`
	Host      string     `json:"host"`
	Port      int        `json:"port"`
	Database  string     `json:"database"`
	Username  string     `json:"username"`
	Password  string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// SnowflakeConnection describes a Snowflake target.
type SnowflakeConnection struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Account    string    `json:"account"`
	Warehouse  string    `json:"warehouse"`
	Database   string    `json:"database"`
	SchemaName string    `json:"schema_name"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	Role       string    `json:"role,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
