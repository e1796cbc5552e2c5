package connections

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// ErrNotFound indicates the connection ID is unknown to the manager.
var ErrNotFound = errors.New("connection not found")

// Manager is an in-memory registry of source and Snowflake target
// connections. It backs the resolver contract the migration engine consumes.
type Manager struct {
	mu      sync.RWMutex
	sources map[string]*models.SourceConnection
	targets map[string]*models.SnowflakeConnection
}

func NewManager() *Manager {
	return &Manager{
		sources: make(map[string]*models.SourceConnection),
		targets: make(map[string]*models.SnowflakeConnection),
	}
}

// AddSource registers a source connection and returns its assigned ID.
func (m *Manager) AddSource(conn models.SourceConnection) models.SourceConnection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	conn.CreatedAt = time.Now()
	m.sources[conn.ID] = &conn
	return conn
}

// AddTarget registers a Snowflake connection and returns its assigned ID.
func (m *Manager) AddTarget(conn models.SnowflakeConnection) models.SnowflakeConnection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.SchemaName == "" {
		conn.SchemaName = "PUBLIC"
	}
	conn.CreatedAt = time.Now()
	m.targets[conn.ID] = &conn
	return conn
}

func (m *Manager) UpdateSource(id string, conn models.SourceConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	conn.ID = id
	conn.CreatedAt = existing.CreatedAt
	m.sources[id] = &conn
	return nil
}

func (m *Manager) UpdateTarget(id string, conn models.SnowflakeConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.targets[id]
	if !ok {
		return ErrNotFound
	}
	conn.ID = id
	conn.CreatedAt = existing.CreatedAt
	if conn.SchemaName == "" {
		conn.SchemaName = "PUBLIC"
	}
	m.targets[id] = &conn
	return nil
}

func (m *Manager) DeleteSource(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
}

func (m *Manager) DeleteTarget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.targets, id)
}

// GetSourceConnection resolves a source connection by ID.
func (m *Manager) GetSourceConnection(id string) (models.SourceConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.sources[id]
	if !ok {
		return models.SourceConnection{}, ErrNotFound
	}
	return *conn, nil
}

// GetTargetConnection resolves a Snowflake target connection by ID.
func (m *Manager) GetTargetConnection(id string) (models.SnowflakeConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.targets[id]
	if !ok {
		return models.SnowflakeConnection{}, ErrNotFound
	}
	return *conn, nil
}

func (m *Manager) ListSources() []models.SourceConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SourceConnection, 0, len(m.sources))
	for _, conn := range m.sources {
		out = append(out, *conn)
	}
	return out
}

func (m *Manager) ListTargets() []models.SnowflakeConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SnowflakeConnection, 0, len(m.targets))
	for _, conn := range m.targets {
		out = append(out, *conn)
	}
	return out
}
