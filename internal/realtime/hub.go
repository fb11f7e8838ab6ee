// Package realtime delivers server events to WebSocket connections grouped
// in rooms.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// Frame is the JSON envelope of every socket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Encode builds a frame for event.
func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outgoing{Event: event, Data: payload})
}

// FrameHandler is called for every frame a client sends.
type FrameHandler func(ctx context.Context, c *Client, frame Frame)

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{rooms: map[string]map[*Client]struct{}{}, log: log}
}

// Client is one socket connection. Writes go through send so only the
// write pump touches the connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID int64

	once   sync.Once
	closed chan struct{}
	rooms  map[string]struct{}
}

func (h *Hub) newClient(conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		UserID: userID,
		closed: make(chan struct{}),
		rooms:  map[string]struct{}{},
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = map[*Client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Remove detaches c from every room and closes its send queue.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()
	c.close()
}

// RoomSize reports how many clients are joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit queues frame on every client of room. Clients whose queue is full are
// dropped.
func (h *Hub) Emit(room string, frame []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(frame) {
			h.log.Warn("dropping slow socket client", zap.Int64("user_id", c.UserID), zap.String("room", room))
			h.Remove(c)
		}
	}
}

// Notify emits event to room on this instance only.
func (h *Hub) Notify(_ context.Context, room, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	h.Emit(room, frame)
	return nil
}

// Send queues a frame for this client only.
func (c *Client) Send(event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		c.hub.Remove(c)
	}
	return nil
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.closed) })
}

// Serve runs the connection until the peer leaves or ctx is done, joined to
// rooms from the start. It blocks and always closes conn.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID int64, handle FrameHandler, rooms ...string) {
	c := h.newClient(conn, userID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writePump(ctx)
	defer h.Remove(c)
	for _, room := range rooms {
		h.Join(c, room)
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("socket read failed", zap.Error(err))
			}
			return
		}
		if handle != nil {
			handle(ctx, c, frame)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ctx.Done():
			return
		}
	}
}
