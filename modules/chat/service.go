package chat

import (
	"context"
	"fmt"
	"time"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/example/pulsechat/modules/broadcast"
	"github.com/go-monolith/mono/pkg/types"
)

// Service is the presence broadcaster and the message and signal relays.
// It holds no connection state of its own; all of it lives in the Registry.
type Service struct {
	registry Registry
	store    Store
	mirror   PresenceMirror
	logger   types.Logger
	opts     Options
	now      func() time.Time
}

// NewService creates a new chat service.
func NewService(registry Registry, store Store, mirror PresenceMirror, logger types.Logger, opts Options) *Service {
	return &Service{
		registry: registry,
		store:    store,
		mirror:   mirror,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// GoOnline registers userID on the connection, announces the user to every
// connection and sends the new connection the online set, in that order.
// The online set already contains userID. Both frames are queued under the
// registry lock, so a concurrent disconnect is seen either before or after
// them, never in between.
func (s *Service) GoOnline(ctx context.Context, handle, userID string) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}

	online, err := s.registry.Register(userID, handle, s.announce(true))
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", userID, err)
	}

	s.mirrorPresence(ctx, userID, true)

	s.logger.Info("User online", "userID", userID, "handle", handle, "online", len(online))
	return nil
}

// Disconnect removes the connection. If it was the registered connection of
// its user, every remaining connection learns that the user went offline.
func (s *Service) Disconnect(ctx context.Context, handle string) {
	userID, ok := s.registry.Unregister(handle, s.announce(false))
	if !ok {
		s.logger.Debug("Connection closed without presence change", "handle", handle)
		return
	}

	s.mirrorPresence(ctx, userID, false)

	s.logger.Info("User offline", "userID", userID, "handle", handle)
}

// JoinRoom subscribes the connection to a conversation room.
func (s *Service) JoinRoom(handle, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversationId", ErrMissingField)
	}
	if s.opts.RequireOnlineBeforeJoin {
		if _, ok := s.registry.Identity(handle); !ok {
			return ErrNotOnline
		}
	}
	return s.registry.Join(handle, conversationID)
}

// LeaveRoom unsubscribes the connection from a conversation room.
func (s *Service) LeaveRoom(handle, conversationID string) {
	s.registry.Leave(handle, conversationID)
}

// SendMessage persists a message and delivers it to every member of the
// conversation room except the sending connection. Nothing is delivered
// unless the store accepted the message, and the delivered timestamp is the
// one the store assigned.
func (s *Service) SendMessage(ctx context.Context, handle string, req SendMessage) (*domain.Message, error) {
	if err := s.validateSend(handle, req); err != nil {
		s.logger.Warn("Dropped send_message", "handle", handle, "error", err)
		return nil, err
	}

	conversationID := domain.ConversationID(req.SenderID, req.ReceiverID)
	if req.ConversationID != "" && req.ConversationID != conversationID {
		s.logger.Warn("Ignoring client conversation id",
			"handle", handle, "got", req.ConversationID, "want", conversationID)
	}

	msg, err := s.store.InsertMessage(ctx, conversationID, req.SenderID, req.ReceiverID, req.Message)
	if err != nil {
		s.logger.Error("Failed to persist message",
			"conversationID", conversationID, "senderID", req.SenderID, "error", err)
		return nil, err
	}

	delivered := s.sendToRoom(conversationID, EventReceiveMessage, msg, handle)
	s.logger.Debug("Message relayed",
		"messageID", msg.ID, "conversationID", conversationID, "recipients", delivered)
	return msg, nil
}

func (s *Service) validateSend(handle string, req SendMessage) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := domain.ValidateUserID(req.SenderID); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if err := domain.ValidateUserID(req.ReceiverID); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	if err := ValidateMessage(req.Message); err != nil {
		return err
	}
	if id, ok := s.registry.Identity(handle); ok && id != req.SenderID {
		return ErrSenderMismatch
	}
	return nil
}

// MarkRead marks a message read and tells the rest of its conversation room.
func (s *Service) MarkRead(ctx context.Context, handle, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("%w: messageId", ErrMissingField)
	}

	msg, err := s.store.MarkMessageRead(ctx, messageID)
	if err != nil {
		s.logger.Error("Failed to mark message read", "messageID", messageID, "error", err)
		return err
	}

	s.sendToRoom(msg.ConversationID, EventMessageRead, msg.ID, handle)
	return nil
}

// Typing relays a typing signal to the whole room, sender included.
func (s *Service) Typing(sig domain.TypingSignal) {
	if sig.ConversationID == "" {
		return
	}
	s.sendToRoom(sig.ConversationID, EventUserTyping, sig, "")
}

// StopTyping relays the end of a typing signal. Clients also expire typing
// indicators on their own, so losing this is harmless.
func (s *Service) StopTyping(conversationID string) {
	if conversationID == "" {
		return
	}
	s.sendToRoom(conversationID, EventUserStoppedTyping, conversationID, "")
}

// announce builds the status broadcast for a presence change and, when the
// user came online, the online_users backfill for its connection.
func (s *Service) announce(isOnline bool) broadcast.Announcer {
	return func(userID string, online []string) broadcast.Announcement {
		var a broadcast.Announcement
		status, err := EncodeFrame(EventUserStatusChanged, domain.UserStatus{UserID: userID, IsOnline: isOnline})
		if err != nil {
			s.logger.Error("Failed to encode status change", "userID", userID, "error", err)
			return a
		}
		a.Broadcast = status
		if !isOnline {
			return a
		}
		backfill, err := EncodeFrame(EventOnlineUsers, online)
		if err != nil {
			s.logger.Error("Failed to encode online users", "userID", userID, "error", err)
			return a
		}
		a.Direct = backfill
		return a
	}
}

func (s *Service) sendToRoom(room, event string, data any, exclude string) int {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		s.logger.Error("Failed to encode frame", "event", event, "error", err)
		return 0
	}
	return s.registry.SendToRoom(room, frame, exclude)
}

func (s *Service) mirrorPresence(ctx context.Context, userID string, isOnline bool) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorPresence(ctx, userID, isOnline, s.now()); err != nil {
		s.logger.Warn("Failed to mirror presence", "userID", userID, "isOnline", isOnline, "error", err)
	}
}
