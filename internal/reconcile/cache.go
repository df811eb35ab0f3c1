package reconcile

import (
	"sync"

	"studysync/internal/models"
)

// Cache is the set of signatures known to exist as active pages in the store.
// It is the first dedup barrier. A signature is only added after the store
// confirmed the page, so the cache never names a page that does not exist.
type Cache struct {
	mu   sync.RWMutex
	sigs map[models.Signature]struct{}

	guardMu sync.Mutex
	guards  map[string]*guard
}

type guard struct {
	mu   sync.Mutex
	refs int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		sigs:   make(map[models.Signature]struct{}),
		guards: make(map[string]*guard),
	}
}

// Contains reports whether sig is cached.
func (c *Cache) Contains(sig models.Signature) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sigs[sig]
	return ok
}

// Add records sig as present in the store.
func (c *Cache) Add(sig models.Signature) {
	c.mu.Lock()
	c.sigs[sig] = struct{}{}
	c.mu.Unlock()
}

// Len returns the number of cached signatures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sigs)
}

// Remove forgets sig.
func (c *Cache) Remove(sig models.Signature) {
	c.mu.Lock()
	delete(c.sigs, sig)
	c.mu.Unlock()
}

// Clear empties the cache, starting a new epoch.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.sigs = make(map[models.Signature]struct{})
	c.mu.Unlock()
}

// Replace swaps the cache contents for sigs.
func (c *Cache) Replace(sigs []models.Signature) {
	next := make(map[models.Signature]struct{}, len(sigs))
	for _, s := range sigs {
		next[s] = struct{}{}
	}
	c.mu.Lock()
	c.sigs = next
	c.mu.Unlock()
}

// Snapshot returns the cached signatures in no particular order.
func (c *Cache) Snapshot() []models.Signature {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Signature, 0, len(c.sigs))
	for s := range c.sigs {
		out = append(out, s)
	}
	return out
}

// Guard serializes the check-then-write sequence for one identity key across
// goroutines and overlapping cycles. Guarding the key rather than the full
// signature also keeps a level change from racing a create for the same
// student. The returned release is idempotent. Different keys never block
// each other.
func (c *Cache) Guard(key string) (release func()) {
	c.guardMu.Lock()
	g, ok := c.guards[key]
	if !ok {
		g = &guard{}
		c.guards[key] = g
	}
	g.refs++
	c.guardMu.Unlock()

	g.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Unlock()
			c.guardMu.Lock()
			g.refs--
			if g.refs == 0 {
				delete(c.guards, key)
			}
			c.guardMu.Unlock()
		})
	}
}

// guardCount is the number of live guard entries; used by tests.
func (c *Cache) guardCount() int {
	c.guardMu.Lock()
	defer c.guardMu.Unlock()
	return len(c.guards)
}
