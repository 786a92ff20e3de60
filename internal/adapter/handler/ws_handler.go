package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
)

const (
	writeWait      = 5 * time.Second
	clientSendSize = 16
)

const (
	EventCart   = "cart"
	EventNotice = "notice"
)

// Event is one message pushed to websocket clients.
type Event struct {
	Type   string         `json:"type"`
	Cart   *CartView      `json:"cart,omitempty"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans cart snapshots and notices out to connected websocket clients.
// Clients that cannot keep up are dropped.
type Hub struct {
	store    *service.CartStore
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewHub(store *service.CartStore, log logrus.FieldLogger) *Hub {
	return &Hub{
		store: store,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}

	// The snapshot is taken after registering and under the same lock as
	// broadcast, so a commit racing this connect is either in the snapshot
	// or delivered right after it.
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if data, err := encodeEvent(cartEvent(h.store.Cart())); err == nil {
		c.send <- data
	}
	h.mu.Unlock()

	go h.writeLoop(c)

	// clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) PublishCart(cart domain.Cart) {
	h.broadcast(cartEvent(cart))
}

func (h *Hub) PublishNotice(notice domain.Notice) {
	h.broadcast(Event{Type: EventNotice, Notice: &notice})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) broadcast(ev Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		h.log.WithError(err).Error("failed to encode websocket event")
		return
	}

	var slow []*wsClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client")
		h.remove(c)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func cartEvent(cart domain.Cart) Event {
	view := NewCartView(cart)
	return Event{Type: EventCart, Cart: &view}
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
