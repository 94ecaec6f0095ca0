package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// ExpandNodeOrchestrator starts expansion batches. It returns the batch
// token synchronously; placeholder content fills in as the generator
// emits records.
type ExpandNodeOrchestrator struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewExpandNodeOrchestrator creates a new expand node orchestrator
func NewExpandNodeOrchestrator(sessions *simulation.Manager, logger *zap.Logger) *ExpandNodeOrchestrator {
	return &ExpandNodeOrchestrator{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the expand node command
func (h *ExpandNodeOrchestrator) Handle(ctx context.Context, cmd commands.ExpandNodeCommand) (*simulation.ExpandResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := session.Expand(ctx, cmd.NodeID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Expansion started",
		zap.String("sessionID", cmd.SessionID),
		zap.Int("nodeID", cmd.NodeID),
		zap.String("batchID", result.BatchID),
	)

	return result, nil
}
