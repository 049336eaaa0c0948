package broadcast

import (
	"errors"
	"io"
	"log"
	"sort"
	"sync"
)

// DefaultQueueSize is the outbound frame buffer of a connection.
const DefaultQueueSize = 64

// Hub errors.
var (
	ErrHubClosed         = errors.New("hub is closed")
	ErrDuplicateHandle   = errors.New("connection handle already attached")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrIdentityImmutable = errors.New("connection already bound to another user")
)

// Conn is one live transport session as seen by the hub. The transport owns
// the handle and drains Outbound; the hub owns identity and room state.
type Conn struct {
	handle string
	closer io.Closer
	send   chan []byte
	done   chan struct{}

	// guarded by Hub.mu
	userID string
	rooms  map[string]struct{}
}

// NewConn creates a connection with an outbound queue of queueSize frames.
// closer, if not nil, is closed when the hub shuts down.
func NewConn(handle string, queueSize int, closer io.Closer) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Conn{
		handle: handle,
		closer: closer,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// Handle returns the transport handle.
func (c *Conn) Handle() string { return c.handle }

// Outbound yields frames queued for this connection.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Done is closed once the connection has been detached from the hub.
func (c *Conn) Done() <-chan struct{} { return c.done }

// enqueue never blocks. Callers hold at least Hub.mu.RLock, and done is only
// closed under the write lock.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Hub is the connection registry and room table of the process.
//
// Delivery is at-most-once and unacknowledged: frames go into a bounded
// per-connection queue and are dropped when the queue is full or the
// connection is gone.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn               // handle -> conn
	users  map[string]string              // userID -> handle
	rooms  map[string]map[string]struct{} // room -> handles
	closed bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
		users: make(map[string]string),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Attach adds an accepted, anonymous connection.
func (h *Hub) Attach(c *Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.conns[c.handle]; ok {
		return ErrDuplicateHandle
	}
	h.conns[c.handle] = c
	log.Printf("[hub] Connection %s attached (%d total)", c.handle, len(h.conns))
	return nil
}

// Announcement holds the frames queued together with a presence change.
// Broadcast goes to every attached connection, Direct only to the connection
// that registered. Direct is ignored on Unregister.
type Announcement struct {
	Broadcast []byte
	Direct    []byte
}

// Announcer builds the frames for a presence change of userID from the
// online set right after the change. It runs under the hub lock and must not
// call back into the hub.
type Announcer func(userID string, online []string) Announcement

// Register binds userID to the connection and marks the user online. The
// newest connection wins. The frames built by announce are queued before the
// lock is released, so no other presence change can interleave with them.
// It returns the online set right after the change.
func (h *Hub) Register(userID, handle string, announce Announcer) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[handle]
	if !ok {
		return nil, ErrUnknownConnection
	}
	if c.userID != "" && c.userID != userID {
		return nil, ErrIdentityImmutable
	}
	c.userID = userID

	if prev, ok := h.users[userID]; ok && prev != handle {
		log.Printf("[hub] User %s moved from connection %s to %s", userID, prev, handle)
	}
	h.users[userID] = handle

	online := h.snapshotLocked()
	if announce != nil {
		a := announce(userID, online)
		if a.Broadcast != nil {
			h.broadcastLocked(a.Broadcast)
		}
		if a.Direct != nil {
			h.deliver(c, a.Direct)
		}
	}
	return online, nil
}

// Unregister detaches the connection and drops its room memberships. The
// user it was bound to goes offline only if the registry still points at
// this handle; the returned ok is false otherwise and announce is not called.
func (h *Hub) Unregister(handle string, announce Announcer) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[handle]
	if !ok {
		return "", false
	}
	h.detachLocked(c)

	if c.userID == "" || h.users[c.userID] != handle {
		return "", false
	}
	delete(h.users, c.userID)

	if announce != nil {
		if a := announce(c.userID, h.snapshotLocked()); a.Broadcast != nil {
			h.broadcastLocked(a.Broadcast)
		}
	}
	return c.userID, true
}

func (h *Hub) detachLocked(c *Conn) {
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.conns, c.handle)
	close(c.done)
	log.Printf("[hub] Connection %s detached (%d total)", c.handle, len(h.conns))
}

// IsOnline reports whether userID has a registered connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

func (h *Hub) handleFor(userID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handle, ok := h.users[userID]
	return handle, ok
}

// Identity returns the user bound to a connection, if any.
func (h *Hub) Identity(handle string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[handle]
	if !ok || c.userID == "" {
		return "", false
	}
	return c.userID, true
}

// Snapshot returns the sorted online user ids.
func (h *Hub) Snapshot() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []string {
	ids := make([]string, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Join adds the connection to a room. Joining twice is a no-op.
func (h *Hub) Join(handle, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[handle]
	if !ok {
		return ErrUnknownConnection
	}
	if _, ok := c.rooms[room]; ok {
		return nil
	}
	c.rooms[room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][handle] = struct{}{}
	log.Printf("[hub] Connection %s joined room %s", handle, room)
	return nil
}

// Leave removes the connection from a room.
func (h *Hub) Leave(handle, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.conns[handle]; ok {
		h.leaveLocked(c, room)
	}
}

func (h *Hub) leaveLocked(c *Conn, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c.handle)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) broadcastLocked(frame []byte) {
	for _, c := range h.conns {
		h.deliver(c, frame)
	}
}

// SendToRoom queues frame on every member of room except the connection
// named by exclude. An empty exclude excludes no one.
func (h *Hub) SendToRoom(room string, frame []byte, exclude string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for handle := range h.rooms[room] {
		if handle == exclude {
			continue
		}
		if c, ok := h.conns[handle]; ok && h.deliver(c, frame) {
			sent++
		}
	}
	return sent
}

func (h *Hub) deliver(c *Conn, frame []byte) bool {
	if !c.enqueue(frame) {
		log.Printf("[hub] Dropped frame for connection %s: queue full", c.handle)
		return false
	}
	return true
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// OnlineCount returns the number of online users.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// roomSize returns the number of connections joined to room.
func (h *Hub) roomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close detaches and closes every connection. Attach fails afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, c := range h.conns {
		close(c.done)
		if c.closer != nil {
			_ = c.closer.Close()
		}
	}
	h.conns = make(map[string]*Conn)
	h.users = make(map[string]string)
	h.rooms = make(map[string]map[string]struct{})
	log.Println("[hub] Closed all connections")
}
