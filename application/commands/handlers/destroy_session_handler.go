package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// DestroySessionHandler handles session teardown commands
type DestroySessionHandler struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewDestroySessionHandler creates a new destroy session handler
func NewDestroySessionHandler(sessions *simulation.Manager, logger *zap.Logger) *DestroySessionHandler {
	return &DestroySessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the destroy session command
func (h *DestroySessionHandler) Handle(ctx context.Context, cmd commands.DestroySessionCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	if err := h.sessions.Destroy(ctx, cmd.SessionID); err != nil {
		return err
	}

	h.logger.Info("Session destroyed", zap.String("sessionID", cmd.SessionID))
	return nil
}
