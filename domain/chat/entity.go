package chat

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ConversationSeparator joins the two sorted user ids of a conversation.
// User ids may not contain it, which keeps conversation ids collision free.
const ConversationSeparator = "_"

// MaxUserIDLength bounds the size of a user identity.
const MaxUserIDLength = 128

// ErrInvalidUserID is returned when a user id is empty, too long or
// contains the conversation separator.
var ErrInvalidUserID = errors.New("invalid user id")

// MessageStatus is the delivery status of a persisted message.
type MessageStatus string

// Message statuses, in the only order they may advance.
const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	return s.rank() > 0
}

// CanAdvanceTo reports whether a message in status s may move to next.
// Statuses only move forward.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

// Message is a direct message between two users. Only Status changes after
// the store has created it.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	ReceiverID     string        `json:"receiverId"`
	Message        string        `json:"message"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"timestamp"`
}

// TypingSignal announces that a user is typing in a conversation.
// It is never persisted.
type TypingSignal struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
}

// UserStatus is a presence transition of a single user.
type UserStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// Presence is the last mirrored presence of a user.
type Presence struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// ValidateUserID checks that id can take part in a conversation id.
func ValidateUserID(id string) error {
	if id == "" || len(id) > MaxUserIDLength || !utf8.ValidString(id) {
		return ErrInvalidUserID
	}
	if strings.Contains(id, ConversationSeparator) {
		return ErrInvalidUserID
	}
	return nil
}

// ConversationID returns the id shared by users a and b, independent of
// argument order.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + ConversationSeparator + pair[1]
}
