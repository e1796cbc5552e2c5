package metadata

import "sync"

// listingCache holds introspection results per connection. Entries live
// until the orchestrator restarts; source schemas change rarely enough that
// a stale listing is preferable to hammering the source catalog.
type listingCache struct {
	mu      sync.RWMutex
	schemas map[string][]SchemaInfo
	tables  map[string][]TableInfo
}

func newListingCache() *listingCache {
	return &listingCache{
		schemas: make(map[string][]SchemaInfo),
		tables:  make(map[string][]TableInfo),
	}
}

func tablesKey(connectionID, schema string) string { return connectionID + ":" + schema }

func (c *listingCache) getSchemas(connectionID string) ([]SchemaInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[connectionID]
	return s, ok
}

func (c *listingCache) putSchemas(connectionID string, s []SchemaInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[connectionID] = s
}

func (c *listingCache) getTables(connectionID, schema string) ([]TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[tablesKey(connectionID, schema)]
	return t, ok
}

func (c *listingCache) putTables(connectionID, schema string, t []TableInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tablesKey(connectionID, schema)] = t
}
