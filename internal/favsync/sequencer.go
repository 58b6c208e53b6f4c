package favsync

import (
	"errors"
	"sync"
)

// ErrStale is returned when a response is older than the latest request
// issued for the same resource.
var ErrStale = errors.New("favsync: stale response")

// Sequencer hands out monotonic request numbers per resource key.
type Sequencer struct {
	mu   sync.Mutex
	last map[string]uint64
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{last: make(map[string]uint64)}
}

// Next issues the next request number for key.
func (s *Sequencer) Next(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key]++
	return s.last[key]
}

// IsCurrent reports whether seq is the latest number issued for key.
func (s *Sequencer) IsCurrent(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[key] == seq
}

// Apply runs fn only when seq is still current for key. The check and fn run
// under the same lock, so a superseded response can never land after a newer
// one.
func (s *Sequencer) Apply(key string, seq uint64, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last[key] != seq {
		return ErrStale
	}
	fn()
	return nil
}
