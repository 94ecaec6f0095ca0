package queries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lifetree-backend/application/simulation"
)

// ListSessionsQuery represents a query to list active sessions
type ListSessionsQuery struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Validate validates the query
func (q ListSessionsQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// ListSessionsResult represents the result of listing sessions
type ListSessionsResult struct {
	Sessions   []SessionSummary `json:"sessions"`
	TotalCount int              `json:"total_count"`
}

// SessionSummary represents a summary of an active session
type SessionSummary struct {
	SessionID      string `json:"session_id"`
	NodeCount      int    `json:"node_count"`
	PendingBatches int    `json:"pending_batches"`
	Tick           uint64 `json:"tick"`
	CreatedAt      string `json:"created_at"`
	LastAccessedAt string `json:"last_accessed_at"`
}

// ListSessionsHandler handles the ListSessionsQuery
type ListSessionsHandler struct {
	sessions *simulation.Manager
}

// NewListSessionsHandler creates a new handler instance
func NewListSessionsHandler(sessions *simulation.Manager) *ListSessionsHandler {
	return &ListSessionsHandler{
		sessions: sessions,
	}
}

// Handle executes the list sessions query
func (h *ListSessionsHandler) Handle(ctx context.Context, query ListSessionsQuery) (*ListSessionsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	active := h.sessions.List(ctx)
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt().After(active[j].CreatedAt())
	})

	result := &ListSessionsResult{
		Sessions:   make([]SessionSummary, 0, len(active)),
		TotalCount: len(active),
	}

	if query.Offset >= len(active) {
		return result, nil
	}
	active = active[query.Offset:]

	for _, session := range active {
		if query.Limit > 0 && len(result.Sessions) >= query.Limit {
			break
		}
		summary := SessionSummary{
			SessionID:      session.ID(),
			CreatedAt:      session.CreatedAt().Format(time.RFC3339),
			LastAccessedAt: session.LastAccessedAt().Format(time.RFC3339),
		}
		// A session stopped between List and Stats just reports zeros.
		if stats, err := session.Stats(ctx); err == nil {
			summary.NodeCount = stats.NodeCount
			summary.PendingBatches = stats.PendingBatches
			summary.Tick = stats.Tick
		}
		result.Sessions = append(result.Sessions, summary)
	}

	return result, nil
}
