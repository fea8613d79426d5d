package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const cacheJanitorInterval = 5 * time.Minute

// CacheService is a small in-process TTL cache. Completion verdicts and
// ledger aggregates are cheap to recompute, so expired entries are simply
// treated as misses and swept in the background.
type CacheService struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// NewCacheService creates the cache and starts its sweeper goroutine.
func NewCacheService() *CacheService {
	cs := &CacheService{entries: make(map[string]cacheEntry)}
	go cs.sweep()
	return cs
}

// Get returns the cached value, or a miss if absent or expired.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	entry, ok := cs.entries[key]
	cs.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for the given TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	cs.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	cs.mu.Unlock()
}

// Delete drops a single key.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	delete(cs.entries, key)
	cs.mu.Unlock()
}

// InvalidateByPrefix drops every key with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	for key := range cs.entries {
		if strings.HasPrefix(key, prefix) {
			delete(cs.entries, key)
		}
	}
	cs.mu.Unlock()
}

// InvalidateProjectCache drops everything derived from a project's milestones
// and payments. Called on every milestone or payment mutation so that an
// eligibility verdict is never served stale at the moment of decision.
func (cs *CacheService) InvalidateProjectCache(projectID uuid.UUID) {
	cs.InvalidateByPrefix("eligibility:" + projectID.String())
	cs.InvalidateByPrefix("ledger:project:" + projectID.String())
}

func (cs *CacheService) sweep() {
	ticker := time.NewTicker(cacheJanitorInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		cs.mu.Lock()
		for key, entry := range cs.entries {
			if entry.expired(now) {
				delete(cs.entries, key)
			}
		}
		cs.mu.Unlock()
	}
}

// EligibilityCacheKey builds the cache key for a project completion verdict.
func EligibilityCacheKey(projectID uuid.UUID) string {
	return "eligibility:" + projectID.String()
}
