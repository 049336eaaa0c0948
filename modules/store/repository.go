package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// Repository provides access to message and presence storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertMessage stores a new message with status sent. The creation time
// is assigned here and is the canonical message timestamp.
func (r *Repository) InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string) (*MessageRecord, error) {
	record := &MessageRecord{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		Status:         string(domain.StatusSent),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return record, nil
}

// AdvanceStatus moves a message forward to status. A message already at or
// past status is returned unchanged.
func (r *Repository) AdvanceStatus(ctx context.Context, id string, status domain.MessageStatus) (*MessageRecord, error) {
	var record MessageRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !domain.MessageStatus(record.Status).CanAdvanceTo(status) {
			return nil
		}
		if err := tx.Model(&record).Update("status", string(status)).Error; err != nil {
			return err
		}
		record.Status = string(status)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	return &record, nil
}

// UpsertPresence records the last known presence of a user. A transition
// older than the stored one is ignored, so mirror writes that arrive out of
// order cannot roll presence back.
func (r *Repository) UpsertPresence(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	presence := &UserPresence{
		UserID:   userID,
		IsOnline: isOnline,
		// Stored as text; a single zone keeps the comparison below ordered.
		LastSeen: lastSeen.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "excluded.last_seen >= user_presence.last_seen"},
		}},
	}).Create(presence).Error
	if err != nil {
		return fmt.Errorf("failed to upsert presence: %w", err)
	}
	return nil
}

// FindPresence retrieves the mirrored presence of a user.
func (r *Repository) FindPresence(ctx context.Context, userID string) (*UserPresence, error) {
	var presence UserPresence
	if err := r.db.WithContext(ctx).First(&presence, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find presence: %w", err)
	}
	return &presence, nil
}
