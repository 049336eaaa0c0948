package chat

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/example/pulsechat/modules/broadcast"
)

// MaxMessageLength bounds the body of a direct message.
const MaxMessageLength = 5000

// Errors reported by the relay and session layer. None of them is sent back
// to the remote client.
var (
	ErrMissingField     = errors.New("missing required field")
	ErrMessageTooLong   = errors.New("message exceeds maximum length")
	ErrMessageInvalid   = errors.New("message contains invalid characters")
	ErrSenderMismatch   = errors.New("sender does not match connection identity")
	ErrNotOnline        = errors.New("connection has not announced a user")
	ErrSessionClosed    = errors.New("session is closed")
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrIdentityMismatch = errors.New("user id does not match authenticated identity")
)

// Registry is the connection registry and room table the relays fan out
// through. *broadcast.Hub implements it. Register and Unregister queue the
// announcer's frames atomically with the presence change.
type Registry interface {
	Register(userID, handle string, announce broadcast.Announcer) ([]string, error)
	Unregister(handle string, announce broadcast.Announcer) (string, bool)
	Identity(handle string) (string, bool)
	Join(handle, room string) error
	Leave(handle, room string)
	SendToRoom(room string, frame []byte, exclude string) int
}

// Store persists messages. The store assigns ids and creation timestamps.
type Store interface {
	InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string) (*domain.Message, error)
	MarkMessageRead(ctx context.Context, messageID string) (*domain.Message, error)
}

// PresenceMirror records presence transitions durably. It is best-effort:
// errors are logged and never affect live presence.
type PresenceMirror interface {
	MirrorPresence(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}

// Options tunes session behavior.
type Options struct {
	// RequireOnlineBeforeJoin rejects join_room until user_online has been
	// processed on the connection. Joining is identity independent by default.
	RequireOnlineBeforeJoin bool
}

// ValidateMessage validates a message body.
func ValidateMessage(content string) error {
	if content == "" {
		return ErrMissingField
	}
	if len(content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}
