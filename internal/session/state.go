// Package session holds the connection-scoped view of a conversation.
package session

import (
	"sync"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
)

// State is an ordered, append-only list of turn views for one connection.
// It is seeded once from durable history when the connection opens and is
// never trusted across reconnects; a fresh connection always reseeds.
type State struct {
	mu    sync.Mutex
	turns []chat.TurnView
}

// Seed returns a state preloaded with the durable history, oldest first.
func Seed(turns []chat.TurnView) *State {
	return &State{turns: append([]chat.TurnView(nil), turns...)}
}

// Append records a turn view in memory, independent of whether the durable
// write has committed.
func (s *State) Append(turn chat.TurnView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Snapshot returns a copy of the ordered turn views accumulated so far.
func (s *State) Snapshot() []chat.TurnView {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]chat.TurnView, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Len reports the number of turns in the view.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
