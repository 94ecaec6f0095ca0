package queries

import (
	"context"
	"errors"
	"fmt"

	"lifetree-backend/application/simulation"
)

// GetAncestryQuery represents a query to retrieve the path from the root
// down to one node. The chain is what scenario generation conditions on,
// so exposing it helps clients explain how a branch came to be.
type GetAncestryQuery struct {
	SessionID string `json:"session_id"`
	NodeID    int    `json:"node_id"`
}

// Validate validates the query
func (q GetAncestryQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.NodeID < 0 {
		return errors.New("node ID cannot be negative")
	}
	return nil
}

// GetAncestryResult represents the query result. Chain is ordered
// root first and ends with the requested node itself.
type GetAncestryResult struct {
	Chain []simulation.NodeSnapshot `json:"chain"`
	Depth int                       `json:"depth"`
}

// GetAncestryHandler handles the GetAncestryQuery
type GetAncestryHandler struct {
	sessions *simulation.Manager
}

// NewGetAncestryHandler creates a new handler instance
func NewGetAncestryHandler(sessions *simulation.Manager) *GetAncestryHandler {
	return &GetAncestryHandler{
		sessions: sessions,
	}
}

// Handle executes the get ancestry query
func (h *GetAncestryHandler) Handle(ctx context.Context, query GetAncestryQuery) (*GetAncestryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	session, err := h.sessions.Get(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	chain, err := session.Ancestry(ctx, query.NodeID)
	if err != nil {
		return nil, err
	}

	return &GetAncestryResult{
		Chain: chain,
		Depth: len(chain),
	}, nil
}
