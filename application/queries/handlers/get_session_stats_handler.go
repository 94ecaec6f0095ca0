package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/queries"
	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
)

// GetSessionStatsHandler handles session diagnostics queries
type GetSessionStatsHandler struct {
	sessions *simulation.Manager
	stats    *services.TreeStatsService
	logger   *zap.Logger
}

// NewGetSessionStatsHandler creates a new session stats handler
func NewGetSessionStatsHandler(
	sessions *simulation.Manager,
	stats *services.TreeStatsService,
	logger *zap.Logger,
) *GetSessionStatsHandler {
	return &GetSessionStatsHandler{
		sessions: sessions,
		stats:    stats,
		logger:   logger,
	}
}

// Handle executes the session stats query
func (h *GetSessionStatsHandler) Handle(ctx context.Context, query queries.GetSessionStatsQuery) (*queries.GetSessionStatsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	session, err := h.sessions.Get(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	stats, err := session.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session stats: %w", err)
	}

	snapshot, err := session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot tree: %w", err)
	}

	result := &queries.GetSessionStatsResult{
		Stats:  stats,
		Layout: h.stats.Compute(snapshot),
	}

	if query.IncludeVersions {
		versions, err := session.VersionHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read version history: %w", err)
		}
		result.Versions = versions
	}

	h.logger.Debug("Session stats computed",
		zap.String("session_id", query.SessionID),
		zap.Int("node_count", stats.NodeCount),
		zap.Uint64("tick", stats.Tick),
	)

	return result, nil
}
