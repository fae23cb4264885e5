package devrelay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer; group envelopes carry one
	// wrapped key per member.
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

// client is one socket joined to a room.
type client struct {
	hub  *hub
	conn *websocket.Conn
	room string
	user domain.UserID
	send chan []byte
	once sync.Once
}

// hub tracks room membership of live sockets.
type hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	m     *metrics
	log   *zap.Logger
}

func newHub(m *metrics, log *zap.Logger) *hub {
	return &hub{rooms: make(map[string]map[*client]struct{}), m: m, log: log}
}

func (h *hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
	h.m.sockets.Inc()
}

func (h *hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *client) {
	members, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}
	c.once.Do(func() { close(c.send) })
	h.m.sockets.Dec()
}

// broadcast queues b for every socket in room. Sockets whose buffer is full
// are dropped.
func (h *hub) broadcast(room string, b []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.rooms[room] {
		select {
		case c.send <- b:
			n++
		default:
			h.log.Warn("dropping slow socket", zap.String("room", room), zap.String("user", c.user.String()))
			h.removeLocked(c)
		}
	}
	h.m.relayed.Add(float64(n))
	return n
}

// direct queues b for c alone.
func (h *hub) direct(c *client, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.room][c]; !ok {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// readPump hands frames from the socket to handle until the socket fails.
func (c *client) readPump(handle func(*client, []byte)) {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("socket error", zap.String("room", c.room), zap.Error(err))
			}
			return
		}
		handle(c, data)
	}
}

// writePump writes queued frames and keepalive pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
