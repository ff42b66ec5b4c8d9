// README: Store holds the single authoritative State and fans events out to listeners.
package store

import (
	"log/slog"
	"sort"
	"sync"

	"courier/internal/modules/api"
	"courier/internal/types"
)

// Listener observes every applied event with the states around it. Listeners
// run in application order and must not call Apply synchronously.
type Listener func(ev api.Event, prev, next State)

type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State

	listeners map[int]Listener
	nextID    int

	strict bool
	logger *slog.Logger
}

// New builds an empty store. A strict store panics on merge inconsistencies
// instead of logging them.
func New(strict bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:     Initial(),
		listeners: make(map[int]Listener),
		strict:    strict,
		logger:    logger,
	}
}

// Apply reduces ev into the state. Applications are serialized; listeners for
// one event finish before listeners of the next event start.
func (s *Store) Apply(ev api.Event) {
	s.mu.Lock()
	prev := s.state
	next, err := Reduce(prev, ev)
	if err != nil {
		if s.strict {
			s.mu.Unlock()
			panic(err)
		}
		s.logger.Error("merge skipped entity types", slog.String("event", ev.Type()), slog.Any("error", err))
	}
	s.state = next
	listeners := s.snapshotListeners()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		l(ev, prev, next)
	}
}

// Subscribe registers l and returns a func that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotListeners() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AccessToken lets the store act as the pipeline's token source.
func (s *Store) AccessToken() string {
	return s.State().AccessToken
}

func (s *Store) DsprDriverID() types.ID {
	return s.State().DsprDriverID
}
