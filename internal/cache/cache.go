// Package cache implements the best-effort Context Cache Manager: an
// in-process map from a stable request prefix to the upstream's opaque
// cached_content reference, consulted by the Handler (K) before
// invoking the Request Translator (H).
//
// Grounded on gemini/client.rs::create_cache. The cache is strictly
// best-effort: a miss never blocks the current request, and a failed
// populate attempt is swallowed, matching the concurrency-safe,
// write-from-any-goroutine shape internal/health already uses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Manager is a concurrent map from cache key to resolved cached_content
// reference.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{entries: make(map[string]string)}
}

// Key computes the cache key from (model, systemInstruction, a stable
// prefix of the leading Content turns) per SPEC_FULL.md §4.O. prefix is
// the caller-supplied serialized representation of the leading turns;
// Key itself only hashes its inputs together, it does not decide how
// many turns are "stable" — that judgment belongs to the caller (K).
func Key(model, systemInstruction, prefix string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(systemInstruction))
	h.Write([]byte{0})
	h.Write([]byte(prefix))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the previously-resolved cached_content reference for
// key, if any.
func (m *Manager) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.entries[key]
	return ref, ok
}

// Store records the resolved cached_content reference for key, once a
// background create_cache call (issued by the caller) succeeds.
func (m *Manager) Store(key, cachedContentRef string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cachedContentRef
}

// Len reports how many entries are currently cached, for diagnostics.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
