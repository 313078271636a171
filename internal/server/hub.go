package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/metrics"
)

const clientBufferSize = 64

// Client is one connected websocket peer. Events are delivered through its
// buffered send channel; a full buffer disconnects that client without
// affecting the others.
type Client struct {
	ID          string
	ConnectedAt time.Time

	send chan []byte

	mu            sync.Mutex
	lastHeartbeat time.Time
	sessions      map[string]struct{}
	closed        bool
}

// Send returns the channel the write pump drains.
func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) heartbeat() {
	c.mu.Lock()
	c.lastHeartbeat = time.Now().UTC()
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

func (c *Client) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		out = append(out, id)
	}
	return out
}

// Hub tracks connected clients and their session subscriptions. Session
// events go only to subscribers; lifecycle events go to everyone. A sweep
// loop sends heartbeats and evicts clients that have gone quiet.
type Hub struct {
	heartbeatInterval time.Duration
	idleTimeout       time.Duration
	metrics           *metrics.Metrics

	mu            sync.RWMutex
	clients       map[string]*Client
	subscriptions map[string]map[string]*Client
}

func NewHub(heartbeatInterval, idleTimeout time.Duration, m *metrics.Metrics) *Hub {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}

	return &Hub{
		heartbeatInterval: heartbeatInterval,
		idleTimeout:       idleTimeout,
		metrics:           m,
		clients:           make(map[string]*Client),
		subscriptions:     make(map[string]map[string]*Client),
	}
}

// Register adds a new client and returns it with a fresh id.
func (h *Hub) Register() *Client {
	now := time.Now().UTC()
	c := &Client{
		ID:            uuid.NewString(),
		ConnectedAt:   now,
		send:          make(chan []byte, clientBufferSize),
		lastHeartbeat: now,
		sessions:      make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetConnectedClients(count)
	}
	log.Printf("client %s connected", c.ID)
	return c
}

// Unregister removes a client and all its subscriptions. Safe to call more
// than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for _, sessionID := range c.subscriptions() {
		if subs, ok := h.subscriptions[sessionID]; ok {
			delete(subs, c.ID)
			if len(subs) == 0 {
				delete(h.subscriptions, sessionID)
			}
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetConnectedClients(count)
	}
	log.Printf("client %s disconnected", c.ID)
}

// Subscribe adds the client to a session's audience. Events broadcast before
// the subscription are never replayed.
func (h *Hub) Subscribe(c *Client, sessionID string) {
	c.mu.Lock()
	c.sessions[sessionID] = struct{}{}
	c.mu.Unlock()

	h.mu.Lock()
	subs, ok := h.subscriptions[sessionID]
	if !ok {
		subs = make(map[string]*Client)
		h.subscriptions[sessionID] = subs
	}
	subs[c.ID] = c
	h.mu.Unlock()

	h.sendTo(c, newEnvelope(EventSubscriptionConfirmed, sessionID, nil))
}

func (h *Hub) Unsubscribe(c *Client, sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	h.mu.Lock()
	if subs, ok := h.subscriptions[sessionID]; ok {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.subscriptions, sessionID)
		}
	}
	h.mu.Unlock()

	h.sendTo(c, newEnvelope(EventUnsubscribed, sessionID, nil))
}

// Heartbeat records a client's heartbeat message, deferring idle eviction.
func (h *Hub) Heartbeat(c *Client) {
	c.heartbeat()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[sessionID])
}

// BroadcastToSession delivers an envelope to the session's subscribers only.
func (h *Hub) BroadcastToSession(sessionID string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}

	h.mu.RLock()
	subs := make([]*Client, 0, len(h.subscriptions[sessionID]))
	for _, c := range h.subscriptions[sessionID] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		h.deliver(c, payload)
	}
	if h.metrics != nil {
		h.metrics.RecordEventBroadcast(env.Type)
	}
}

// BroadcastToAll delivers an envelope to every connected client.
func (h *Hub) BroadcastToAll(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}

	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.deliver(c, payload)
	}
	if h.metrics != nil {
		h.metrics.RecordEventBroadcast(env.Type)
	}
}

func (h *Hub) sendTo(c *Client, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.deliver(c, payload)
}

func (h *Hub) deliver(c *Client, payload []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- payload:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		log.Printf("client %s send buffer full, disconnecting", c.ID)
		h.Unregister(c)
	}
}

// Sweep runs the heartbeat and idle-eviction loop until ctx is done.
func (h *Hub) Sweep(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweepOnce()
		}
	}
}

func (h *Hub) sweepOnce() {
	cutoff := time.Now().UTC().Add(-h.idleTimeout)

	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		if c.idleSince().Before(cutoff) {
			log.Printf("client %s idle since %s, evicting", c.ID, c.idleSince().Format(time.RFC3339))
			h.Unregister(c)
			continue
		}
		h.sendTo(c, newEnvelope(EventHeartbeat, "", nil))
	}
}

// The methods below adapt the hub to the session manager's broadcaster.

func (h *Hub) BroadcastSessionStarted(sessionID string) {
	h.BroadcastToAll(newEnvelope(EventSessionStarted, sessionID, nil))
}

func (h *Hub) BroadcastChunkUpdate(sessionID string, chunk annotate.AnnotatedChunk) {
	h.BroadcastToSession(sessionID, newEnvelope(EventChunkUpdate, sessionID, chunk))
}

func (h *Hub) BroadcastSummaryUpdate(sessionID string, summary annotate.MeetingSummary) {
	h.BroadcastToSession(sessionID, newEnvelope(EventSummaryUpdate, sessionID, summary))
}

func (h *Hub) BroadcastStatusUpdate(sessionID, status string) {
	h.BroadcastToSession(sessionID, newEnvelope(EventStatusUpdate, sessionID, map[string]string{"status": status}))
}

func (h *Hub) BroadcastSessionEnded(sessionID string, totalChunks int, totalDuration float64) {
	h.BroadcastToAll(newEnvelope(EventSessionEnded, sessionID, map[string]any{
		"total_chunks":   totalChunks,
		"total_duration": totalDuration,
	}))
}
