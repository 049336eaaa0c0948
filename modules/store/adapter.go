package store

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Adapter wraps the store module's ServiceContainer for other modules.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new store adapter.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("store: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

// InsertMessage persists a message and returns it with the store-assigned
// id, status and timestamp.
func (a *Adapter) InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string) (*domain.Message, error) {
	req := InsertMessageRequest{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Message:        body,
	}
	var resp InsertMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceInsertMessage,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	if resp.Message == nil {
		return nil, fmt.Errorf("failed to insert message: empty response")
	}
	return resp.Message, nil
}

// MarkMessageRead advances a message to read.
func (a *Adapter) MarkMessageRead(ctx context.Context, messageID string) (*domain.Message, error) {
	req := MarkReadRequest{MessageID: messageID}
	var resp MarkReadResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceMarkRead,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	if resp.Message == nil {
		return nil, fmt.Errorf("failed to mark message read: empty response")
	}
	return resp.Message, nil
}

// GetPresence returns the mirrored presence of a user. found is false when
// the store has never recorded the user.
func (a *Adapter) GetPresence(ctx context.Context, userID string) (presence *domain.Presence, found bool, err error) {
	req := GetPresenceRequest{UserID: userID}
	var resp GetPresenceResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetPresence,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, false, fmt.Errorf("failed to get presence: %w", err)
	}
	if !resp.Found || resp.Presence == nil {
		return nil, false, nil
	}
	return resp.Presence, true, nil
}
