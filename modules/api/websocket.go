package api

import (
	"context"
	"errors"

	"github.com/example/pulsechat/modules/broadcast"
	"github.com/example/pulsechat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

// Per-connection inbound rate limit.
const (
	eventsPerSecond = 10
	burstSize       = 20
)

// handleWebSocket handles WebSocket connections at /ws. Inbound events are
// processed sequentially on this goroutine; a write pump drains the
// connection's outbound queue. Nothing is ever written back in response to
// a rejected event.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	svc := m.chat.Service()
	if svc == nil {
		m.logger.Error("Rejected connection: chat service not started")
		_ = c.Close()
		return
	}

	handle := m.newHandle()
	authID, _ := c.Locals(identityKey).(string)

	conn := broadcast.NewConn(handle, m.config.SendQueueSize, c)
	if err := m.hub.Attach(conn); err != nil {
		m.logger.Warn("Rejected connection", "handle", handle, "error", err)
		_ = c.Close()
		return
	}

	sess := svc.NewSession(handle, authID)
	sess.Accept()
	m.logger.Debug("WebSocket connected", "handle", handle, "authenticated", authID != "")

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		m.writePump(c, conn)
	}()

	ctx := context.Background()
	limiter := rate.NewLimiter(eventsPerSecond, burstSize)
	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("WebSocket read error", "handle", handle, "error", err)
			}
			break
		}

		if !limiter.Allow() {
			m.logger.Warn("Rate limit exceeded, event dropped", "handle", handle)
			continue
		}

		ev, err := chat.DecodeEvent(frame)
		if err != nil {
			m.logger.Warn("Dropped inbound event", "handle", handle, "error", err)
			continue
		}

		if err := sess.Dispatch(ctx, ev); err != nil {
			if errors.Is(err, chat.ErrSessionClosed) {
				break
			}
			m.logger.Warn("Event rejected", "handle", handle, "event", ev.Name(), "error", err)
		}
	}

	sess.Close(ctx)
	<-pumpDone
	_ = c.Close()
	m.logger.Debug("WebSocket disconnected", "handle", handle, "userID", sess.UserID())
}

// writePump writes queued frames until the hub detaches the connection.
func (m *APIModule) writePump(c *websocket.Conn, conn *broadcast.Conn) {
	for {
		select {
		case frame := <-conn.Outbound():
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				m.logger.Debug("WebSocket write failed", "handle", conn.Handle(), "error", err)
				return
			}
		case <-conn.Done():
			return
		}
	}
}
