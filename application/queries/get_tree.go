package queries

import (
	"context"
	"errors"
	"fmt"

	"lifetree-backend/application/simulation"
)

// GetTreeQuery represents a query to retrieve a session's full tree
type GetTreeQuery struct {
	SessionID string `json:"session_id"`
}

// Validate validates the query
func (q GetTreeQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// GetTreeResult represents the query result
type GetTreeResult struct {
	Tree     *simulation.TreeSnapshot `json:"tree"`
	Metadata TreeMetadataDTO          `json:"metadata"`
}

// TreeMetadataDTO summarizes the tree alongside the full snapshot
type TreeMetadataDTO struct {
	NodeCount      int `json:"node_count"`
	EdgeCount      int `json:"edge_count"`
	GrowingCount   int `json:"growing_count"`
	PendingBatches int `json:"pending_batches"`
}

// GetTreeHandler handles the GetTreeQuery
type GetTreeHandler struct {
	sessions *simulation.Manager
}

// NewGetTreeHandler creates a new handler instance
func NewGetTreeHandler(sessions *simulation.Manager) *GetTreeHandler {
	return &GetTreeHandler{
		sessions: sessions,
	}
}

// Handle executes the get tree query
func (h *GetTreeHandler) Handle(ctx context.Context, query GetTreeQuery) (*GetTreeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	session, err := h.sessions.Get(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	snapshot, err := session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot tree: %w", err)
	}

	stats, err := session.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session stats: %w", err)
	}

	return &GetTreeResult{
		Tree: snapshot,
		Metadata: TreeMetadataDTO{
			NodeCount:      stats.NodeCount,
			EdgeCount:      stats.EdgeCount,
			GrowingCount:   stats.GrowingCount,
			PendingBatches: stats.PendingBatches,
		},
	}, nil
}
