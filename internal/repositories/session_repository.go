package repositories

import (
	"context"
	"errors"
	"time"

	"campusshop/internal/models"
)

// ErrSessionNotFound is returned when no session is stored under an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines the interface for visitor session persistence.
type SessionRepository interface {
	Save(ctx context.Context, session *models.StoredSession) error
	GetByID(ctx context.Context, id string) (*models.StoredSession, error)
	Delete(ctx context.Context, id string) error
	// DeleteUpdatedBefore removes sessions last saved before t and reports
	// how many were removed.
	DeleteUpdatedBefore(ctx context.Context, t time.Time) (int64, error)
}
