package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alimasry/go-pos-sync/metrics"
	"github.com/alimasry/go-pos-sync/store"
)

type directMessage struct {
	to   *Client
	data []byte
}

type relayMessage struct {
	from  *Client
	event string
	data  json.RawMessage
}

// Hub is the change bus. All membership changes and fan-out are serialized
// through the single goroutine started by Run.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	clients  map[*Client]bool
	// clients whose leave was processed before their join
	departed map[*Client]bool

	join    chan *Client
	leave   chan *Client
	publish chan []byte
	relay   chan relayMessage
	direct  chan directMessage
	stop    chan struct{}
	done    chan struct{}

	closeOnce sync.Once

	// mu orders register against shutdown; once closed is set nothing new
	// enters join.
	mu     sync.Mutex
	closed bool
}

type HubOption func(*Hub)

func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func NewHub(m *metrics.Metrics, opts ...HubOption) *Hub {
	h := &Hub{
		log:      slog.Default(),
		metrics:  m,
		now:      time.Now,
		clients:  make(map[*Client]bool),
		departed: make(map[*Client]bool),
		join:     make(chan *Client, 16),
		leave:    make(chan *Client, 16),
		publish:  make(chan []byte, 256),
		relay:    make(chan relayMessage, 256),
		direct:   make(chan directMessage, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's main loop. It returns once Close is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.join:
			h.handleJoin(c)
		case c := <-h.leave:
			h.handleLeave(c)
		case data := <-h.publish:
			h.handlePublish(data)
		case rm := <-h.relay:
			h.handleRelay(rm)
		case dm := <-h.direct:
			if h.clients[dm.to] {
				h.deliver(dm.to, dm.data)
			}
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Close stops the loop and closes every client's send queue, which makes
// each write pump send a close frame. It waits for Run to return.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Publish queues a durable update for every connected client. It never
// blocks: when the queue is full the event is dropped.
func (h *Hub) Publish(topic string, payload any) {
	data := ServerMessage{
		Event: EventUpdate,
		Data:  Update{Topic: topic, Payload: payload, TS: store.Timestamp(h.now())},
	}.Encode()
	select {
	case h.publish <- data:
	default:
		h.log.Warn("publish queue full, dropping event", "topic", topic)
		h.metrics.Dropped.WithLabelValues("publish_queue").Inc()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return
	}
	select {
	case h.join <- c:
	case <-h.stop:
		// Never joined, so the hub will not close it.
		close(c.send)
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.leave <- c:
	case <-h.stop:
	}
}

func (h *Hub) forward(rm relayMessage) {
	select {
	case h.relay <- rm:
	default:
		h.metrics.Dropped.WithLabelValues("relay_queue").Inc()
	}
}

// sendTo queues a frame for one client. Frames for clients that have left
// are discarded by the loop.
func (h *Hub) sendTo(c *Client, msg ServerMessage) {
	select {
	case h.direct <- directMessage{to: c, data: msg.Encode()}:
	default:
		h.metrics.Dropped.WithLabelValues("direct_queue").Inc()
	}
}

func (h *Hub) handleJoin(c *Client) {
	if h.departed[c] {
		delete(h.departed, c)
		close(c.send)
		return
	}
	h.clients[c] = true
	h.metrics.Clients.Set(float64(len(h.clients)))
	h.log.Debug("client joined", "client", c.ID, "clients", len(h.clients))

	c.sendMsg(ServerMessage{
		Event: EventHello,
		Data:  Hello{OK: true, TS: store.Timestamp(h.now()), ClientID: c.ID},
	})
}

func (h *Hub) handleLeave(c *Client) {
	if _, ok := h.clients[c]; !ok {
		h.departed[c] = true
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.Clients.Set(float64(len(h.clients)))
	h.log.Debug("client left", "client", c.ID, "clients", len(h.clients))
}

func (h *Hub) handlePublish(data []byte) {
	h.metrics.Events.WithLabelValues("update").Inc()
	for c := range h.clients {
		h.deliver(c, data)
	}
}

func (h *Hub) handleRelay(rm relayMessage) {
	// The sender may have left while the message was queued.
	if !h.clients[rm.from] {
		return
	}
	h.metrics.Events.WithLabelValues("relay").Inc()
	data := ServerMessage{Event: rm.event, Data: rm.data}.Encode()
	for c := range h.clients {
		if c != rm.from {
			h.deliver(c, data)
		}
	}
}

func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message.
		h.metrics.Dropped.WithLabelValues("slow_client").Inc()
	}
}

func (h *Hub) shutdown() {
	// Waits for an in-flight register, so the drain below sees its join.
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	// joins queued behind the stop signal
	for {
		select {
		case c := <-h.join:
			close(c.send)
			continue
		default:
		}
		break
	}
	h.metrics.Clients.Set(0)
	h.log.Info("change bus stopped")
}
