package store

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/example/pulsechat/events"
	"github.com/go-monolith/mono"
)

// insertMessage handles the store.insert-message service request.
func (m *StoreModule) insertMessage(ctx context.Context, req InsertMessageRequest, _ *mono.Msg) (InsertMessageResponse, error) {
	if req.ConversationID == "" || req.SenderID == "" || req.ReceiverID == "" || req.Message == "" {
		return InsertMessageResponse{}, fmt.Errorf("conversation_id, sender_id, receiver_id and message are required")
	}

	record, err := m.repo.InsertMessage(ctx, req.ConversationID, req.SenderID, req.ReceiverID, req.Message)
	if err != nil {
		return InsertMessageResponse{}, err
	}

	return InsertMessageResponse{Message: record.ToDomain()}, nil
}

// markRead handles the store.mark-read service request.
func (m *StoreModule) markRead(ctx context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	if req.MessageID == "" {
		return MarkReadResponse{}, fmt.Errorf("message_id is required")
	}

	record, err := m.repo.AdvanceStatus(ctx, req.MessageID, domain.StatusRead)
	if err != nil {
		return MarkReadResponse{}, err
	}

	return MarkReadResponse{Message: record.ToDomain()}, nil
}

// getPresence handles the store.get-presence service request.
func (m *StoreModule) getPresence(ctx context.Context, req GetPresenceRequest, _ *mono.Msg) (GetPresenceResponse, error) {
	if req.UserID == "" {
		return GetPresenceResponse{}, fmt.Errorf("user_id is required")
	}
	if m.mirror == nil {
		return GetPresenceResponse{}, fmt.Errorf("presence mirror not initialized")
	}

	presence, err := m.mirror.Lookup(ctx, req.UserID)
	if errors.Is(err, ErrNotFound) {
		return GetPresenceResponse{Found: false}, nil
	}
	if err != nil {
		return GetPresenceResponse{}, err
	}

	return GetPresenceResponse{Presence: presence.ToDomain(), Found: true}, nil
}

// handleUserStatusChanged mirrors a presence transition. Failures are
// logged and never retried.
func (m *StoreModule) handleUserStatusChanged(ctx context.Context, event events.UserStatusChangedEvent, _ *mono.Msg) error {
	if m.mirror == nil {
		return nil
	}
	if err := m.mirror.Apply(ctx, event.UserID, event.IsOnline, event.LastSeen); err != nil {
		m.logger.Warn("Failed to mirror presence",
			"userID", event.UserID,
			"isOnline", event.IsOnline,
			"error", err)
	}
	return nil
}
