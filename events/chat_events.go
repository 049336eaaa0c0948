package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserStatusChangedEvent is emitted after a user's live presence changed.
// Consumers treat it as a best-effort mirror of the in-memory registry.
type UserStatusChangedEvent struct {
	UserID   string    `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// Event definitions for the chat domain.
var (
	UserStatusChangedV1 = helper.EventDefinition[UserStatusChangedEvent](
		"chat",
		"UserStatusChanged",
		"v1",
	)
)
