package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// MoveNodeHandler handles node move commands
type MoveNodeHandler struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewMoveNodeHandler creates a new move node handler
func NewMoveNodeHandler(sessions *simulation.Manager, logger *zap.Logger) *MoveNodeHandler {
	return &MoveNodeHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the move node command
func (h *MoveNodeHandler) Handle(ctx context.Context, cmd commands.MoveNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return err
	}

	if err := session.MoveNode(ctx, cmd.NodeID, cmd.X, cmd.Y); err != nil {
		return err
	}

	h.logger.Debug("Node moved",
		zap.String("sessionID", cmd.SessionID),
		zap.Int("nodeID", cmd.NodeID),
		zap.Float64("x", cmd.X),
		zap.Float64("y", cmd.Y),
	)
	return nil
}
