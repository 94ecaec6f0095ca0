// Package websocket streams live simulation frames to connected clients.
// Each session gets one stream that fans frames out to every subscriber;
// clients that cannot keep up are dropped rather than allowed to stall
// the session loop.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"lifetree-backend/application/simulation"
)

// detachWait bounds how long a detach may wait on the session loop.
const detachWait = 5 * time.Second

// Message types carried in the wire envelope.
const (
	messageTypeSnapshot = "snapshot"
	messageTypeFrame    = "frame"
)

// wireMessage is the envelope for every message sent to a client.
type wireMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks one frame stream per session.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	streams map[string]*stream
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		streams: make(map[string]*stream),
	}
}

// attach registers a client with its session's stream, creating the
// stream and subscribing it to the session on first use.
func (h *Hub) attach(ctx context.Context, sess *simulation.Session, client *Client) error {
	h.mu.Lock()
	st, ok := h.streams[client.sessionID]
	if !ok {
		st = newStream(h, sess, h.logger)
		h.streams[client.sessionID] = st
	}
	first := st.add(client)
	h.mu.Unlock()

	if first {
		if err := sess.Subscribe(ctx, st); err != nil {
			h.detach(client)
			return err
		}
	}
	return nil
}

// detach removes a client, tearing the stream down when it was the last
// one. Safe to call more than once for the same client.
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	st, ok := h.streams[client.sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	_, last := st.remove(client)
	if last {
		delete(h.streams, client.sessionID)
	}
	h.mu.Unlock()

	if last {
		ctx, cancel := context.WithTimeout(context.Background(), detachWait)
		defer cancel()
		// A stopped session rejects the call; its sinks died with it.
		_ = st.session.Unsubscribe(ctx, st)
	}
}

// ClientCount reports the number of connected stream clients across all
// sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, st := range h.streams {
		count += st.count()
	}
	return count
}

// sessionClients reports how many clients one session's stream has.
func (h *Hub) sessionClients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.streams[sessionID]
	if !ok {
		return 0
	}
	return st.count()
}

// Close drops every client. Used on server shutdown after the session
// manager has stopped, so streams are not unsubscribed individually.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, st := range h.streams {
		st.closeAll()
		delete(h.streams, id)
	}
	h.logger.Info("Stream hub closed")
}

// stream fans one session's frames out to its clients. It implements
// simulation.FrameSink, so SendFrame runs on the session loop and must
// never wait on a client.
type stream struct {
	hub     *Hub
	session *simulation.Session
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func newStream(hub *Hub, sess *simulation.Session, logger *zap.Logger) *stream {
	return &stream{
		hub:     hub,
		session: sess,
		logger:  logger.With(zap.String("session_id", sess.ID())),
		clients: make(map[*Client]struct{}),
	}
}

// add registers a client and reports whether it was the first.
func (st *stream) add(client *Client) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.clients[client] = struct{}{}
	return len(st.clients) == 1
}

// remove drops a client and reports whether it was present and whether
// it was the last. The send channel is closed under the lock so a
// concurrent SendFrame can never write to a closed channel.
func (st *stream) remove(client *Client) (removed, last bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.clients[client]; !ok {
		return false, len(st.clients) == 0
	}
	delete(st.clients, client)
	close(client.send)
	return true, len(st.clients) == 0
}

func (st *stream) count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.clients)
}

// closeAll drops every client without unsubscribing from the session.
func (st *stream) closeAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for client := range st.clients {
		close(client.send)
		client.conn.Close()
	}
	st.clients = make(map[*Client]struct{})
}

// SendFrame marshals the frame once and offers it to every client
// without blocking. Clients whose send buffer is full are disconnected.
// It reports whether every client accepted the frame.
func (st *stream) SendFrame(frame *simulation.Frame) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if len(st.clients) == 0 {
		return true
	}

	data, err := json.Marshal(wireMessage{Type: messageTypeFrame, Data: frame})
	if err != nil {
		st.logger.Error("Failed to marshal frame", zap.Error(err))
		return false
	}

	delivered := true
	for client := range st.clients {
		select {
		case client.send <- data:
		default:
			delivered = false
			st.logger.Warn("Dropping slow stream client",
				zap.String("connection_id", client.id),
			)
			go st.hub.detach(client)
		}
	}
	return delivered
}
