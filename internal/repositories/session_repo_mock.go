package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campusshop/internal/models"

	"github.com/google/uuid"
)

// MockSessionRepository is an in-memory implementation of SessionRepository.
type MockSessionRepository struct {
	sessions map[string]models.StoredSession
	mu       sync.RWMutex
}

// NewMockSessionRepository creates a new instance of MockSessionRepository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]models.StoredSession),
	}
}

// Save inserts or replaces a session.
func (r *MockSessionRepository) Save(_ context.Context, session *models.StoredSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	if existing, ok := r.sessions[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.sessions[session.ID] = *session
	return nil
}

// GetByID returns a session by its ID.
func (r *MockSessionRepository) GetByID(_ context.Context, id string) (*models.StoredSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session with ID %s: %w", id, ErrSessionNotFound)
	}
	return &session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *MockSessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteUpdatedBefore removes sessions last saved before t.
func (r *MockSessionRepository) DeleteUpdatedBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, session := range r.sessions {
		if session.UpdatedAt.Before(t) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *MockSessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
