package store

import (
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// handleCache memoizes resolved collection handles and the names of indexes
// already ensured on them. Every handle is derived from a single client
// instance, so invalidation is always wholesale: when the client is rebuilt
// there is no per-key state worth keeping.
type handleCache struct {
	mu      sync.RWMutex
	handles map[handleKey]*mongo.Collection
	indexes map[string]struct{}
}

type handleKey struct {
	database   string
	collection string
}

func newHandleCache() *handleCache {
	return &handleCache{
		handles: make(map[handleKey]*mongo.Collection),
		indexes: make(map[string]struct{}),
	}
}

// resolve returns the memoized handle for (database, collection), creating
// and caching it from client on first request.
func (c *handleCache) resolve(client *mongo.Client, database, collection string) *mongo.Collection {
	key := handleKey{database: database, collection: collection}

	c.mu.RLock()
	handle, ok := c.handles[key]
	c.mu.RUnlock()
	if ok {
		return handle
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if handle, ok := c.handles[key]; ok {
		return handle
	}
	handle = client.Database(database).Collection(collection)
	c.handles[key] = handle
	return handle
}

// markIndexed records that an index has been ensured; it returns false if
// the index was already recorded.
func (c *handleCache) markIndexed(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; ok {
		return false
	}
	c.indexes[name] = struct{}{}
	return true
}

// invalidateAll clears every cached handle and recorded index name. Called
// once per successful reconnect; the old handles reference a closed client.
func (c *handleCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = make(map[handleKey]*mongo.Collection)
	c.indexes = make(map[string]struct{})
}

// size returns the number of cached handles.
func (c *handleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}
