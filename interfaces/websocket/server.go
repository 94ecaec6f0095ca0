package websocket

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lifetree-backend/application/simulation"
	"lifetree-backend/pkg/auth"
	"lifetree-backend/pkg/common"
)

// maxClientsPerSession caps concurrent stream subscribers of one session.
const maxClientsPerSession = 16

// Server upgrades HTTP requests into frame stream subscriptions. It is
// mounted under the session routes, so the session ID arrives as a chi
// URL parameter.
type Server struct {
	hub       *Hub
	manager   *simulation.Manager
	validator *auth.TokenValidator
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewServer creates the stream server. A nil validator disables
// authentication, matching the REST middleware.
func NewServer(hub *Hub, manager *simulation.Manager, validator *auth.TokenValidator, logger *zap.Logger) *Server {
	return &Server{
		hub:       hub,
		manager:   manager,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP authenticates the request, resolves the session, and hands
// the connection over to the hub. The first message on the socket is a
// full tree snapshot; frames carry motion state only, so the client
// needs the structure before the stream starts.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "session ID is required")
		return
	}

	if s.validator != nil {
		if _, err := s.validator.Validate(streamToken(r)); err != nil {
			s.logger.Debug("Stream authentication failed", zap.Error(err))
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing token")
			return
		}
	}

	sess, err := s.manager.Get(r.Context(), sessionID)
	if err != nil {
		common.RespondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return
	}

	if s.hub.sessionClients(sessionID) >= maxClientsPerSession {
		common.RespondError(w, http.StatusTooManyRequests, "TOO_MANY_CLIENTS", "stream client limit reached for this session")
		return
	}

	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to snapshot session")
		return
	}
	initial, err := json.Marshal(wireMessage{Type: messageTypeSnapshot, Data: snap})
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to encode snapshot")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		s.logger.Debug("Stream upgrade failed", zap.Error(err))
		return
	}

	client := newClient(sessionID, s.hub, conn, s.logger)
	// Queued before the client joins the stream, so the snapshot always
	// precedes the first frame.
	client.send <- initial

	if err := s.hub.attach(r.Context(), sess, client); err != nil {
		s.logger.Warn("Failed to attach stream client",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		conn.Close()
		return
	}
	client.start()

	s.logger.Info("Stream client connected",
		zap.String("session_id", sessionID),
		zap.String("connection_id", client.id),
	)
}

// streamToken pulls the bearer token from the query string or the
// Authorization header. Browsers cannot set headers on WebSocket dials,
// so the query parameter is checked first.
func streamToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
