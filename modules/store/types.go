package store

import domain "github.com/example/pulsechat/domain/chat"

// Service names registered by the store module.
const (
	ServiceInsertMessage = "insert-message"
	ServiceMarkRead      = "mark-read"
	ServiceGetPresence   = "get-presence"
)

// InsertMessageRequest is the request for persisting a new message.
type InsertMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Message        string `json:"message"`
}

// InsertMessageResponse carries the stored message, including the
// store-assigned timestamp.
type InsertMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// MarkReadRequest is the request for marking a message read.
type MarkReadRequest struct {
	MessageID string `json:"message_id"`
}

// MarkReadResponse carries the message after the status change.
type MarkReadResponse struct {
	Message *domain.Message `json:"message"`
}

// GetPresenceRequest is the request for a user's mirrored presence.
type GetPresenceRequest struct {
	UserID string `json:"user_id"`
}

// GetPresenceResponse carries the mirrored presence. Found is false when
// the user has never been seen.
type GetPresenceResponse struct {
	Presence *domain.Presence `json:"presence,omitempty"`
	Found    bool             `json:"found"`
}
