package chat

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle state of a connection.
type State int

// Connection lifecycle states.
const (
	StateConnecting State = iota
	StateAnonymous
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAnonymous:
		return "anonymous"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session drives one connection through its lifecycle. Transitions happen
// only on inbound transport events; there are no timeouts. A reconnect is a
// new Session and rooms are not carried over.
type Session struct {
	svc    *Service
	handle string
	authID string

	mu     sync.Mutex
	state  State
	userID string
}

// NewSession creates a session for a transport connection that is still
// handshaking. authID is the identity established by the authentication
// collaborator, or empty when the transport is not authenticated.
func (s *Service) NewSession(handle, authID string) *Session {
	return &Session{
		svc:    s,
		handle: handle,
		authID: authID,
		state:  StateConnecting,
	}
}

// Handle returns the connection handle.
func (s *Session) Handle() string { return s.handle }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the user announced on this connection, if any.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Accept marks the transport handshake complete.
func (s *Session) Accept() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateAnonymous
	}
}

// Dispatch applies one inbound event. Events from a single connection are
// expected to arrive sequentially.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	if s.State() == StateDisconnected {
		return ErrSessionClosed
	}

	switch e := ev.(type) {
	case UserOnline:
		return s.goOnline(ctx, e.UserID)
	case JoinRoom:
		return s.svc.JoinRoom(s.handle, e.ConversationID)
	case LeaveRoom:
		s.svc.LeaveRoom(s.handle, e.ConversationID)
		return nil
	case SendMessage:
		_, err := s.svc.SendMessage(ctx, s.handle, e)
		return err
	case Typing:
		s.svc.Typing(e.TypingSignal)
		return nil
	case StopTyping:
		s.svc.StopTyping(e.ConversationID)
		return nil
	case MarkAsRead:
		return s.svc.MarkRead(ctx, s.handle, e.MessageID)
	}
	return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}

func (s *Session) goOnline(ctx context.Context, userID string) error {
	if s.authID != "" && s.authID != userID {
		return ErrIdentityMismatch
	}
	if err := s.svc.GoOnline(ctx, s.handle, userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisconnected {
		s.state = StateActive
		s.userID = userID
	}
	return nil
}

// Close ends the session after the transport closed. Calling it more than
// once is a no-op.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	s.svc.Disconnect(ctx, s.handle)
}
