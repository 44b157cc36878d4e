// internal/store/memory.go
//
// In-memory Store implementation. Used in tests and wherever durability
// is not required; state is lost on process restart. Concurrency-safe via
// a single mutex, which trivially satisfies the per-key write ordering
// the interface demands.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"wordaday/internal/game"
)

type memoryKey struct {
	player string
	date   string
}

// Memory is a map-backed Store.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]User // keyed by ID
	states   map[memoryKey]game.State
	attempts map[memoryKey][]game.Attempt
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]User),
		states:   make(map[memoryKey]game.State),
		attempts: make(map[memoryKey][]game.Attempt),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (m *Memory) GameState(_ context.Context, player, date string) (game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[memoryKey{player, date}]; ok {
		return st, nil
	}
	return game.State{}, ErrNotFound
}

func (m *Memory) Attempts(_ context.Context, player, date string) ([]game.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.attempts[memoryKey{player, date}]
	out := make([]game.Attempt, len(list))
	copy(out, list)
	return out, nil
}

func (m *Memory) RecordAttempt(_ context.Context, st game.State, a game.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey{st.Player, st.Date}
	for _, existing := range m.attempts[key] {
		if existing.Ordinal == a.Ordinal {
			return ErrConflict
		}
	}
	m.states[key] = st
	m.attempts[key] = append(m.attempts[key], a)
	return nil
}

func (m *Memory) ImportGame(_ context.Context, st game.State, attempts []game.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey{st.Player, st.Date}
	if len(m.attempts[key]) > 0 {
		return ErrConflict
	}
	m.states[key] = st
	m.attempts[key] = append([]game.Attempt(nil), attempts...)
	return nil
}

func (m *Memory) WonStates(_ context.Context, date string) ([]game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []game.State
	for key, st := range m.states {
		if key.date == date && st.Status == game.StatusWon {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SolvedAt != nil && b.SolvedAt != nil && !a.SolvedAt.Equal(*b.SolvedAt) {
			return a.SolvedAt.Before(*b.SolvedAt)
		}
		return a.Player < b.Player
	})
	return out, nil
}
