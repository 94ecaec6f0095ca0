package queries

import (
	"context"
	"errors"
	"fmt"

	"lifetree-backend/application/simulation"
)

// GetNodeQuery represents a query to retrieve a single node
type GetNodeQuery struct {
	SessionID string `json:"session_id"`
	NodeID    int    `json:"node_id"`
}

// Validate validates the query
func (q GetNodeQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.NodeID < 0 {
		return errors.New("node ID cannot be negative")
	}
	return nil
}

// GetNodeResult represents the query result
type GetNodeResult struct {
	Node *simulation.NodeSnapshot `json:"node"`
}

// GetNodeHandler handles the GetNodeQuery
type GetNodeHandler struct {
	sessions *simulation.Manager
}

// NewGetNodeHandler creates a new handler instance
func NewGetNodeHandler(sessions *simulation.Manager) *GetNodeHandler {
	return &GetNodeHandler{
		sessions: sessions,
	}
}

// Handle executes the get node query
func (h *GetNodeHandler) Handle(ctx context.Context, query GetNodeQuery) (*GetNodeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	session, err := h.sessions.Get(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	node, err := session.NodeDetail(ctx, query.NodeID)
	if err != nil {
		return nil, err
	}

	return &GetNodeResult{Node: node}, nil
}
