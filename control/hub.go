package control

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openroad/dashcam/logging"
)

// envelope is the wire format for every frame in both directions.
type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data,omitempty"`
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// hub tracks connected clients and fans out broadcast frames.
type hub struct {
	logger *logging.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}

	sendBuf int
}

func newHub(logger *logging.Logger, sendBuf, broadcastBuf int) *hub {
	if sendBuf <= 0 {
		sendBuf = 32
	}
	if broadcastBuf <= 0 {
		broadcastBuf = 128
	}
	return &hub{
		logger:     logger,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		clients:    make(map[*client]struct{}),
		sendBuf:    sendBuf,
	}
}

// run processes hub events until stop is closed, then disconnects every
// client.
func (h *hub) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client_connected", map[string]interface{}{
				"remote":  c.remoteAddr,
				"clients": n,
			})

		case c := <-h.unregister:
			h.remove(c, "disconnect")

		case msg := <-h.broadcast:
			// Collect slow clients first; removing while ranging would
			// mutate the map under the lock.
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()
			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// send enqueues a frame for broadcast. Never blocks; a full hub queue
// drops the frame.
func (h *hub) send(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast_queue_full", map[string]interface{}{
			"bytes": len(msg),
		})
	}
}

func (h *hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.conn.Close()
	c.closeSend()
	h.logger.Info("client_disconnected", map[string]interface{}{
		"remote":  c.remoteAddr,
		"reason":  reason,
		"clients": n,
	})
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// client is one websocket connection with its own outbound queue.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *logging.Logger
	sendOnce   sync.Once
}

func newClient(h *hub, conn *websocket.Conn, remoteAddr string, logger *logging.Logger) *client {
	return &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

func (c *client) closeSend() {
	c.sendOnce.Do(func() {
		close(c.send)
	})
}

// writePump drains the send queue onto the connection and keeps the
// link alive with pings. Exits on write error or when send is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound frames, dispatching command frames and handling
// control frames. Exits on read error, then unregisters the client.
func (c *client) readPump(onCommand func(*client, []byte)) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case c.hub.unregister <- c:
			default:
			}
			return
		}
		onCommand(c, msg)
	}
}

// reply enqueues a frame for this client only.
func (c *client) reply(msg []byte) {
	defer func() {
		// Losing the race with a concurrent disconnect closes send
		// underneath us; dropping the reply is fine then.
		recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}
