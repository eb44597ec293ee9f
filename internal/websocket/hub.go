package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/diagnosis"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "diagnosis_progress"
	clusterBuffer  = 256
	clusterTimeout = 2 * time.Second
)

const (
	frameProgress = "progress"
	frameFinished = "finished"
)

// Hub fans diagnosis progress out to the websocket clients watching each session. With redis,
// updates produced on one instance reach clients connected to any instance.
type Hub struct {
	// SessionID -> watching clients
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string
	// frames waiting to be published to the other instances
	outbound chan []byte

	logger logger.ILogger
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

var _ diagnosis.Observer = (*Hub)(nil)

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		outbound:   make(chan []byte, clusterBuffer),
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
		go h.forwardToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Register adds client to its session. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes its Send channel. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.SessionID]
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
	}
}

func (h *Hub) JobAccepted(sessionID string, req diagnosis.Request) {}

func (h *Hub) JobProgress(status diagnosis.Status) {
	h.publish(status.SessionID, frameProgress, status)
}

func (h *Hub) JobFinished(sessionID string, entry diagnosis.Entry) {
	status := diagnosis.Status{SessionID: sessionID, Status: entry.Status, Progress: 100}
	if entry.Status == diagnosis.StatusCompleted {
		status.Phase = diagnosis.PhaseCompleted
	} else {
		status.Phase = diagnosis.PhaseError
		status.Message = entry.Error
		status.ErrorPhase = entry.Phase
	}
	h.publish(sessionID, frameFinished, status)
}

// Watchers counts local clients of sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func encodeFrame(kind string, status diagnosis.Status) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": kind,
		"data": status,
	})
}

// SnapshotFrame encodes a polled status the same way live updates are encoded.
func SnapshotFrame(status diagnosis.Status) ([]byte, error) {
	if status.Status != diagnosis.StatusProcessing {
		return encodeFrame(frameFinished, status)
	}
	return encodeFrame(frameProgress, status)
}

func (h *Hub) publish(sessionID, kind string, status diagnosis.Status) {
	data, err := encodeFrame(kind, status)
	if err != nil {
		return
	}

	h.deliver(sessionID, data)

	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterMessage{Origin: h.instanceID, SessionID: sessionID, Message: data})
	if err != nil {
		return
	}
	select {
	case h.outbound <- payload:
	default:
		h.logger.Warn("Hub", "Redis fan-out queue full, dropping update", map[string]interface{}{"session_id": sessionID})
	}
}

// forwardToRedis publishes queued frames so a slow redis never stalls the workers reporting progress.
func (h *Hub) forwardToRedis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-h.outbound:
			pctx, cancel := context.WithTimeout(ctx, clusterTimeout)
			err := h.rdb.Publish(pctx, clusterChannel, payload).Err()
			cancel()
			if err != nil && ctx.Err() == nil {
				h.logger.Warn("Hub", "Failed to publish progress to redis", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// deliver never blocks the caller: a client whose buffer is full is dropped.
func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go h.Unregister(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			msg = m
		}

		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}
		h.deliver(payload.SessionID, payload.Message)
	}
}
