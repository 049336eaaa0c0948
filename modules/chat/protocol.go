package chat

import (
	"encoding/json"
	"fmt"

	domain "github.com/example/pulsechat/domain/chat"
)

// Inbound event names.
const (
	EventUserOnline  = "user_online"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventMarkAsRead  = "mark_as_read"
)

// Outbound event names.
const (
	EventReceiveMessage    = "receive_message"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventUserStatusChanged = "user_status_changed"
	EventOnlineUsers       = "online_users"
	EventMessageRead       = "message_read"
)

// Envelope is the JSON frame exchanged over the WebSocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is a decoded client event. The set of implementations is closed.
type Event interface {
	Name() string
	Validate() error
	isEvent()
}

// UserOnline announces the authenticated user of a connection.
type UserOnline struct {
	UserID string
}

// JoinRoom subscribes the connection to a conversation room.
type JoinRoom struct {
	ConversationID string
}

// LeaveRoom unsubscribes the connection from a conversation room.
type LeaveRoom struct {
	ConversationID string
}

// SendMessage asks the relay to persist and deliver a message. The client
// timestamp is accepted on the wire and ignored.
type SendMessage struct {
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId"`
	Message        string          `json:"message"`
	Timestamp      json.RawMessage `json:"timestamp,omitempty"`
}

// Typing announces that a user started typing.
type Typing struct {
	domain.TypingSignal
}

// StopTyping announces that typing stopped in a conversation.
type StopTyping struct {
	ConversationID string
}

// MarkAsRead marks a persisted message read.
type MarkAsRead struct {
	MessageID string
}

func (UserOnline) Name() string  { return EventUserOnline }
func (JoinRoom) Name() string    { return EventJoinRoom }
func (LeaveRoom) Name() string   { return EventLeaveRoom }
func (SendMessage) Name() string { return EventSendMessage }
func (Typing) Name() string      { return EventTyping }
func (StopTyping) Name() string  { return EventStopTyping }
func (MarkAsRead) Name() string  { return EventMarkAsRead }

func (UserOnline) isEvent()  {}
func (JoinRoom) isEvent()    {}
func (LeaveRoom) isEvent()   {}
func (SendMessage) isEvent() {}
func (Typing) isEvent()      {}
func (StopTyping) isEvent()  {}
func (MarkAsRead) isEvent()  {}

// Validate checks the user id.
func (e UserOnline) Validate() error {
	return domain.ValidateUserID(e.UserID)
}

// Validate checks the conversation id.
func (e JoinRoom) Validate() error {
	return requireField("conversationId", e.ConversationID)
}

// Validate checks the conversation id.
func (e LeaveRoom) Validate() error {
	return requireField("conversationId", e.ConversationID)
}

// Validate checks that sender, receiver and body are present.
func (e SendMessage) Validate() error {
	if err := requireField("senderId", e.SenderID); err != nil {
		return err
	}
	if err := requireField("receiverId", e.ReceiverID); err != nil {
		return err
	}
	return requireField("message", e.Message)
}

// Validate checks the conversation id.
func (e Typing) Validate() error {
	return requireField("conversationId", e.ConversationID)
}

// Validate checks the conversation id.
func (e StopTyping) Validate() error {
	return requireField("conversationId", e.ConversationID)
}

// Validate checks the message id.
func (e MarkAsRead) Validate() error {
	return requireField("messageId", e.MessageID)
}

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return nil
}

// DecodeEvent parses and validates one inbound frame.
func DecodeEvent(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var (
		ev  Event
		err error
	)
	switch env.Event {
	case EventUserOnline:
		var id string
		err = json.Unmarshal(env.Data, &id)
		ev = UserOnline{UserID: id}
	case EventJoinRoom:
		var id string
		err = json.Unmarshal(env.Data, &id)
		ev = JoinRoom{ConversationID: id}
	case EventLeaveRoom:
		var id string
		err = json.Unmarshal(env.Data, &id)
		ev = LeaveRoom{ConversationID: id}
	case EventSendMessage:
		var msg SendMessage
		err = json.Unmarshal(env.Data, &msg)
		ev = msg
	case EventTyping:
		var sig domain.TypingSignal
		err = json.Unmarshal(env.Data, &sig)
		ev = Typing{TypingSignal: sig}
	case EventStopTyping:
		var id string
		err = json.Unmarshal(env.Data, &id)
		ev = StopTyping{ConversationID: id}
	case EventMarkAsRead:
		var id string
		err = json.Unmarshal(env.Data, &id)
		ev = MarkAsRead{MessageID: id}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEvent, env.Event, err)
	}
	return ev, nil
}

// EncodeFrame builds an outbound frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", event, err)
	}
	return frame, nil
}
