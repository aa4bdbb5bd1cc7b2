package web

import "sync"

// Sequencer hands out increasing tickets so that only the response of the
// most recent request is applied. Older responses arriving late are stale.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Next issues a new ticket, making every earlier ticket stale.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Current reports whether ticket is still the latest one issued.
func (s *Sequencer) Current(ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket == s.latest
}
