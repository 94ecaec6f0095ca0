package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// ResetSessionHandler handles session reset commands
type ResetSessionHandler struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewResetSessionHandler creates a new reset session handler
func NewResetSessionHandler(sessions *simulation.Manager, logger *zap.Logger) *ResetSessionHandler {
	return &ResetSessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the reset session command
func (h *ResetSessionHandler) Handle(ctx context.Context, cmd commands.ResetSessionCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return err
	}

	if err := session.Reset(ctx); err != nil {
		return err
	}

	h.logger.Info("Session reset", zap.String("sessionID", cmd.SessionID))
	return nil
}
