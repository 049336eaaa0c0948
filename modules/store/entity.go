package store

import (
	"time"

	domain "github.com/example/pulsechat/domain/chat"
)

// MessageRecord is the persisted form of a direct message.
type MessageRecord struct {
	ID             string    `gorm:"primarykey;size:36"`
	ConversationID string    `gorm:"size:257;not null;index:idx_conversation_created,priority:1"`
	SenderID       string    `gorm:"size:128;not null"`
	ReceiverID     string    `gorm:"size:128;not null;index:idx_receiver_status,priority:1"`
	Body           string    `gorm:"column:message;not null"`
	Status         string    `gorm:"size:16;not null;default:sent;index:idx_receiver_status,priority:2"`
	CreatedAt      time.Time `gorm:"index:idx_conversation_created,priority:2"`
	UpdatedAt      time.Time
}

// TableName returns the table name for MessageRecord.
func (MessageRecord) TableName() string {
	return "messages"
}

// ToDomain converts the record to the wire-level message shape.
func (r *MessageRecord) ToDomain() *domain.Message {
	return &domain.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		ReceiverID:     r.ReceiverID,
		Message:        r.Body,
		Status:         domain.MessageStatus(r.Status),
		CreatedAt:      r.CreatedAt,
	}
}

// UserPresence mirrors the last known presence of a user. It may lag the
// live registry.
type UserPresence struct {
	UserID    string    `gorm:"primarykey;size:128"`
	IsOnline  bool      `gorm:"not null;default:false"`
	LastSeen  time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for UserPresence.
func (UserPresence) TableName() string {
	return "user_presence"
}

// ToDomain converts the mirrored row to the domain presence.
func (p *UserPresence) ToDomain() *domain.Presence {
	return &domain.Presence{
		UserID:   p.UserID,
		IsOnline: p.IsOnline,
		LastSeen: p.LastSeen,
	}
}
