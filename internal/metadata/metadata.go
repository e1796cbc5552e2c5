package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/models"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
)

// SchemaInfo describes one schema in a source database.
type SchemaInfo struct {
	Name string `json:"name"`
}

// TableInfo describes one table. RowCount is the engine's estimate from
// catalog statistics, not an exact count; nil when the catalog has none.
type TableInfo struct {
	SchemaName string `json:"schema_name"`
	Name       string `json:"name"`
	RowCount   *int64 `json:"row_count,omitempty"`
}

// FullName returns the qualified schema.table name.
func (t TableInfo) FullName() string { return t.SchemaName + "." + t.Name }

// Service introspects source databases to offer schema and table listings
// for building a job's table selections. Results are cached per connection
// for the lifetime of the service; the orchestration core itself only ever
// consumes the resulting plain table list.
type Service struct {
	conns   *connections.Manager
	timeout time.Duration
	logger  zerolog.Logger

	cache *listingCache
}

func NewService(conns *connections.Manager, timeout time.Duration, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		conns:   conns,
		timeout: timeout,
		logger:  logger.With().Str("component", "metadata").Logger(),
		cache:   newListingCache(),
	}
}

// ListSchemas returns the schemas of the source database behind the
// connection, system schemas excluded.
func (s *Service) ListSchemas(ctx context.Context, connectionID string) ([]SchemaInfo, error) {
	if cached, ok := s.cache.getSchemas(connectionID); ok {
		return cached, nil
	}

	conn, err := s.conns.GetSourceConnection(connectionID)
	if err != nil {
		return nil, err
	}

	db, err := s.open(conn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, err := schemasQuery(conn.Type)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []SchemaInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		schemas = append(schemas, SchemaInfo{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}

	s.cache.putSchemas(connectionID, schemas)
	return schemas, nil
}

// ListTables returns the base tables of one schema with estimated row
// counts from catalog statistics.
func (s *Service) ListTables(ctx context.Context, connectionID, schema string) ([]TableInfo, error) {
	if err := validateIdentifier(schema); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.getTables(connectionID, schema); ok {
		return cached, nil
	}

	conn, err := s.conns.GetSourceConnection(connectionID)
	if err != nil {
		return nil, err
	}

	db, err := s.open(conn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, err := tablesQuery(conn.Type)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var (
			name     string
			rowCount sql.NullInt64
		)
		if err := rows.Scan(&name, &rowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		info := TableInfo{SchemaName: schema, Name: name}
		if rowCount.Valid && rowCount.Int64 >= 0 {
			info.RowCount = &rowCount.Int64
		}
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	s.cache.putTables(connectionID, schema, tables)
	return tables, nil
}

func (s *Service) open(conn models.SourceConnection) (*sql.DB, error) {
	driver, dsn, err := connString(conn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", conn.Type, err)
	}
	return db, nil
}

// connString builds the driver DSN for a source connection.
func connString(conn models.SourceConnection) (driver, dsn string, err error) {
	switch conn.Type {
	case models.SourcePostgres:
		return "postgres", fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			conn.Username, conn.Password, conn.Host, conn.Port, conn.Database), nil
	case models.SourceMySQL:
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			conn.Username, conn.Password, conn.Host, conn.Port, conn.Database), nil
	default:
		return "", "", fmt.Errorf("metadata introspection not supported for %s sources", conn.Type)
	}
}

func schemasQuery(t models.SourceType) (string, error) {
	switch t {
	case models.SourcePostgres:
		return `SELECT schema_name
			FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
			ORDER BY schema_name`, nil
	case models.SourceMySQL:
		return `SELECT schema_name
			FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
			ORDER BY schema_name`, nil
	default:
		return "", fmt.Errorf("metadata introspection not supported for %s sources", t)
	}
}

func tablesQuery(t models.SourceType) (string, error) {
	switch t {
	case models.SourcePostgres:
		// reltuples is -1 on never-analyzed tables; surfaced as no estimate.
		return `SELECT c.relname, c.reltuples::bigint
			FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE n.nspname = $1 AND c.relkind = 'r'
			ORDER BY c.relname`, nil
	case models.SourceMySQL:
		return `SELECT table_name, table_rows
			FROM information_schema.tables
			WHERE table_schema = ? AND table_type = 'BASE TABLE'
			ORDER BY table_name`, nil
	default:
		return "", fmt.Errorf("metadata introspection not supported for %s sources", t)
	}
}
