package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"campusshop/internal/models"
	"campusshop/internal/repositories"

	"github.com/google/uuid"
)

// ErrUnknownSession is returned by Get for ids that were never created or
// have expired.
var ErrUnknownSession = errors.New("unknown session")

// Manager owns the live visitor states. Only logins are persisted through
// the session repository so they survive a restart. Anonymous visitors, carts
// and checkouts are kept in memory only.
type Manager struct {
	repo repositories.SessionRepository

	mu     sync.Mutex
	states map[string]*State
}

// NewManager creates a new Manager.
func NewManager(repo repositories.SessionRepository) *Manager {
	return &Manager{
		repo:   repo,
		states: make(map[string]*State),
	}
}

// Create starts a new anonymous visitor session. Nothing is written to the
// repository until the visitor logs in.
func (m *Manager) Create() *State {
	st := newState(uuid.New().String(), nil)
	m.mu.Lock()
	m.states[st.ID] = st
	m.mu.Unlock()
	return st
}

// Get returns the state of session id. A session known only to the
// repository is restored with its login and an empty cart.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	now := time.Now()

	m.mu.Lock()
	st, ok := m.states[id]
	m.mu.Unlock()
	if ok {
		st.touch(now)
		return st, nil
	}

	stored, err := m.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrUnknownSession
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[id]; ok {
		st.touch(now)
		return st, nil
	}
	st = newState(stored.ID, stored.Login())
	m.states[id] = st
	log.Printf("Restored session %s", id)
	return st, nil
}

// Login attaches a remote login to the visitor and persists it.
func (m *Manager) Login(ctx context.Context, st *State, login *models.Session) error {
	stored := &models.StoredSession{
		ID:     st.ID,
		Token:  login.Token,
		UserID: login.ID,
		Name:   login.Name,
		Email:  login.Email,
	}
	if err := m.repo.Save(ctx, stored); err != nil {
		return fmt.Errorf("failed to persist login: %w", err)
	}
	copied := *login
	st.setLogin(&copied)
	return nil
}

// Logout drops the visitor's login and any checkout in progress. The cart
// is kept; the session lives on in memory as an anonymous one.
func (m *Manager) Logout(ctx context.Context, st *State) error {
	if err := m.repo.Delete(ctx, st.ID); err != nil {
		return fmt.Errorf("failed to persist logout: %w", err)
	}
	st.setLogin(nil)
	return nil
}

// Delete forgets a session entirely.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	st, ok := m.states[id]
	delete(m.states, id)
	m.mu.Unlock()

	if ok {
		st.EndCheckout()
	}
	return m.repo.Delete(ctx, id)
}

// Evict drops states idle for longer than maxIdle and returns how many were
// dropped. Their stored logins are deleted too, along with any record not
// saved within maxIdle: a visitor token never outlives maxIdle, so nothing
// can reach those records any more.
func (m *Manager) Evict(ctx context.Context, maxIdle time.Duration) (int, error) {
	now := time.Now()

	m.mu.Lock()
	var stale []string
	evicted := 0
	for id, st := range m.states {
		if st.idleSince(now) > maxIdle {
			if st.Authenticated() {
				stale = append(stale, id)
			}
			st.EndCheckout()
			delete(m.states, id)
			evicted++
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.repo.Delete(ctx, id); err != nil {
			return evicted, fmt.Errorf("failed to delete session %s: %w", id, err)
		}
	}
	if _, err := m.repo.DeleteUpdatedBefore(ctx, now.Add(-maxIdle)); err != nil {
		return evicted, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return evicted, nil
}

// Len returns the number of live states.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
