// Package ws pushes order changes to business dashboards over websockets.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/order"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// allBusinesses is the subscription key for national admins.
const allBusinesses = "*"

const (
	writeWait = 10 * time.Second
	// sendBuffer is how many messages a client may fall behind before it is
	// dropped.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Businesses interface {
	GetBusiness(ctx context.Context, id string) (catalog.Business, error)
}

type Orders interface {
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
}

type Message struct {
	Type     string         `json:"type"`
	Seq      uint64         `json:"seq,omitempty"`
	Order    *order.Order   `json:"order,omitempty"`
	Orders   []*order.Order `json:"orders,omitempty"`
	Previous order.Status   `json:"previousStatus,omitempty"`
	At       time.Time      `json:"at"`
}

// client owns one connection. Only its serve loop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan any
	gone chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan any, sendBuffer), gone: make(chan struct{})}
}

// enqueue hands message to the writer without blocking. It reports false
// when the client is gone or its buffer is full.
func (c *client) enqueue(message any) bool {
	select {
	case <-c.gone:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *client) kick() {
	c.once.Do(func() { close(c.gone) })
}

func (c *client) write(value any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

type Hub struct {
	auth       *auth.Service
	businesses Businesses
	orders     Orders
	heartbeat  time.Duration
	logger     *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub(authSvc *auth.Service, businesses Businesses, orders Orders, heartbeat time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		auth:       authSvc,
		businesses: businesses,
		orders:     orders,
		heartbeat:  heartbeat,
		logger:     logger,
		subs:       make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) subscribe(key string, c *client) (unsubscribe func()) {
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*client]struct{})
	}
	h.subs[key][c] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.drop(key, c)
		h.mu.Unlock()
	}
}

func (h *Hub) drop(key string, c *client) {
	clients := h.subs[key]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, key)
	}
}

// Subscribers counts the connections listening to a business.
func (h *Hub) Subscribers(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[businessID])
}

// broadcast queues message for every subscriber of key. A client that has
// fallen sendBuffer messages behind is disconnected.
func (h *Hub) broadcast(key string, message any) {
	h.mu.RLock()
	var slow []*client
	for c := range h.subs[key] {
		if !c.enqueue(message) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		h.drop(key, c)
	}
	h.mu.Unlock()
	for _, c := range slow {
		c.kick()
		h.logger.Warn("ws client dropped", zap.String("business", key))
	}
}

// OrderChanged fans a committed change out to the order's business and to
// every all-business subscriber.
func (h *Hub) OrderChanged(_ context.Context, change order.Change) {
	if change.Order == nil {
		return
	}
	msg := Message{Type: "order." + change.Kind, Seq: change.Seq, Order: change.Order, Previous: change.Previous, At: time.Now()}
	if id := strings.TrimSpace(change.Order.Business.ID); id != "" {
		h.broadcast(id, msg)
	}
	h.broadcast(allBusinesses, msg)
}

var _ order.Listener = (*Hub)(nil)

// BusinessOrdersWS streams one business's orders. The token travels in the
// query string since browsers cannot set headers on websocket requests.
func (h *Hub) BusinessOrdersWS(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(chi.URLParam(r, "id"))
	claims, err := h.auth.Verify(strings.TrimSpace(r.URL.Query().Get("token")))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := businessID
	scope := claims.Scope()
	if businessID == "" || businessID == allBusinesses {
		if !scope.All() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		key = allBusinesses
	} else {
		b, err := h.businesses.GetBusiness(r.Context(), businessID)
		if err != nil {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		if !scope.Allows(b.ID, b.Region) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := newClient(conn)
	unsubscribe := h.subscribe(key, c)
	defer unsubscribe()

	h.sendSnapshot(r.Context(), c, key)
	h.serve(r.Context(), c)
}

func (h *Hub) sendSnapshot(ctx context.Context, c *client, key string) {
	f := order.Filter{}
	if key != allBusinesses {
		f.BusinessID = key
	}
	orders, err := h.orders.List(ctx, f)
	if err != nil {
		h.logger.Warn("ws snapshot failed", zap.String("business", key), zap.Error(err))
		return
	}
	active := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status.Active() {
			active = append(active, o)
		}
	}
	c.enqueue(Message{Type: "orders.state", Orders: active, At: time.Now()})
}

// serve writes queued messages and keeps the connection alive with pings
// until the peer goes away or the hub drops the client.
func (h *Hub) serve(ctx context.Context, c *client) {
	pongWait := h.heartbeat * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-c.gone:
			return
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
