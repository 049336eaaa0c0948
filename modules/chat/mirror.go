package chat

import (
	"context"
	"errors"
	"time"

	"github.com/example/pulsechat/events"
	"github.com/go-monolith/mono"
)

// eventMirror publishes presence transitions on the EventBus. The store
// module consumes them asynchronously, so the live path never waits on I/O.
type eventMirror struct {
	bus mono.EventBus
}

func (m eventMirror) MirrorPresence(_ context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	if m.bus == nil {
		return errors.New("event bus not set")
	}
	return events.UserStatusChangedV1.Publish(m.bus, events.UserStatusChangedEvent{
		UserID:   userID,
		IsOnline: isOnline,
		LastSeen: lastSeen,
	}, nil)
}
