// Package signature implements the process-wide tool-call signature store.
//
// Gemini tags some FunctionCall parts with an opaque "thought signature"
// tying the call to the reasoning that produced it. When a client replays
// that tool_use in a later request's history, the signature must be echoed
// back verbatim. Carrying it through the Anthropic-facing domain types would
// leak an upstream-specific concept into the client wire format, so it lives
// here instead, keyed by tool_use id.
//
// Grounded on translation/tools.rs (translate_tool_use's lookup-with-fallback)
// and translation/streaming.rs's emit_tool_use (the write side).
package signature

import "sync"

// Fallback is returned by Translate when no signature was ever recorded for
// an id — for example a tool_use id invented by a client migrating history
// from another provider.
const Fallback = "skip_thought_signature_validator"

// Store is a concurrent map from tool_use id to its signature.
type Store struct {
	mu   sync.RWMutex
	sigs map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{sigs: make(map[string]string)}
}

// Put records the signature Gemini returned with a FunctionCall part.
func (s *Store) Put(id, sig string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs[id] = sig
}

// Get returns the signature for id, and whether one was found.
func (s *Store) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.sigs[id]
	return sig, ok
}

// Translate returns the stored signature for id, or Fallback if absent. This
// is the form translate_tool_use actually wants: a signature is always
// produced, never an error.
func (s *Store) Translate(id string) string {
	if sig, ok := s.Get(id); ok {
		return sig
	}
	return Fallback
}

// GC drops every entry whose id is not present in liveIDs. The Handler calls
// this with the set of tool_use ids observed in the current request's
// message history, bounding growth without a hard cap.
func (s *Store) GC(liveIDs map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sigs {
		if !liveIDs[id] {
			delete(s.sigs, id)
		}
	}
}

// Len reports the number of tracked signatures. Exposed for tests and metrics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sigs)
}
