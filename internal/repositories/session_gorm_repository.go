package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMSessionRepository is a GORM implementation of SessionRepository.
type GORMSessionRepository struct {
	db *gorm.DB
}

// NewGORMSessionRepository creates a new instance of GORMSessionRepository.
func NewGORMSessionRepository(db *gorm.DB) *GORMSessionRepository {
	return &GORMSessionRepository{
		db: db,
	}
}

// Migrate creates or updates the sessions table.
func (r *GORMSessionRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.StoredSession{}); err != nil {
		return fmt.Errorf("failed to migrate sessions: %w", err)
	}
	return nil
}

// Save inserts the session or updates it when the ID already exists.
func (r *GORMSessionRepository) Save(ctx context.Context, session *models.StoredSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "user_id", "name", "email", "updated_at"}),
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its ID from the database.
func (r *GORMSessionRepository) GetByID(ctx context.Context, id string) (*models.StoredSession, error) {
	var session models.StoredSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session with ID %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session by ID %s: %w", id, err)
	}
	return &session, nil
}

// Delete deletes a session by its ID from the database.
func (r *GORMSessionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.StoredSession{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete session: %w", res.Error)
	}
	return nil
}

// DeleteUpdatedBefore deletes sessions last saved before t.
func (r *GORMSessionRepository) DeleteUpdatedBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", t).Delete(&models.StoredSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
