// Package health tracks per-model availability so the Upstream Client can
// stop sending traffic to a model that has reported an unrecoverable error,
// while continuing to treat transient failures as retryable.
//
// Grounded on original_source/src/gemini/availability.rs. The Rust source
// carries a StickyRetry{reason, consumed} variant; SPEC_FULL.md's data model
// (§3 ModelHealth) simplifies this to a flat three-state enum with no
// "consumed" bookkeeping — that simplification is intentional, not a gap.
package health

import "sync"

// State is the availability of one model.
type State int

const (
	// Healthy means the model has most recently succeeded or was never
	// marked otherwise.
	Healthy State = iota
	// TransientRetry means a retryable error (5xx, rate-limit) was
	// observed; future calls may still be attempted.
	TransientRetry
	// Terminal means an unrecoverable error (daily quota exhaustion,
	// ineligible account) was observed. Absorbing: never downgraded.
	Terminal
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case TransientRetry:
		return "transient_retry"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

type entry struct {
	state  State
	reason string
}

// Tracker is a concurrent map from model name to its availability entry.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

func (t *Tracker) ensure(model string) *entry {
	if e, ok := t.entries[model]; ok {
		return e
	}
	e := &entry{state: Healthy}
	t.entries[model] = e
	return e
}

// MarkHealthy records a successful call. Per spec.md §4.E ("if an entry
// exists, set Healthy"), this never creates a new entry — a model that has
// never been seen has no opinion recorded about it yet.
func (t *Tracker) MarkHealthy(model string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[model]; ok {
		e.state = Healthy
		e.reason = ""
	}
}

// MarkTransient records a retryable failure, unless the model is already
// Terminal (absorbing).
func (t *Tracker) MarkTransient(model, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.ensure(model)
	if e.state == Terminal {
		return
	}
	e.state = TransientRetry
	e.reason = reason
}

// MarkTerminal records an unrecoverable failure. Once set, the state never
// changes again for the lifetime of the process.
func (t *Tracker) MarkTerminal(model, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.ensure(model)
	e.state = Terminal
	e.reason = reason
}

// IsAvailable reports whether the model may still be tried: true unless the
// model has been marked Terminal.
func (t *Tracker) IsAvailable(model string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[model]
	if !ok {
		return true
	}
	return e.state != Terminal
}

// State returns the current state and reason (if any) for a model.
func (t *Tracker) State(model string) (State, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[model]
	if !ok {
		return Healthy, ""
	}
	return e.state, e.reason
}

// Snapshot returns a copy of every tracked model's state, for /health
// reporting.
func (t *Tracker) Snapshot() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.entries))
	for model, e := range t.entries {
		out[model] = e.state
	}
	return out
}
