package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// EditNodeHandler handles node edit commands
type EditNodeHandler struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewEditNodeHandler creates a new edit node handler
func NewEditNodeHandler(sessions *simulation.Manager, logger *zap.Logger) *EditNodeHandler {
	return &EditNodeHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the edit node command
func (h *EditNodeHandler) Handle(ctx context.Context, cmd commands.EditNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return err
	}

	err = session.EditNode(ctx, simulation.EditRequest{
		NodeID:             cmd.NodeID,
		Title:              cmd.Title,
		ChangeDescription:  cmd.ChangeDescription,
		Location:           cmd.Location,
		RelationshipStatus: cmd.RelationshipStatus,
		LivingSituation:    cmd.LivingSituation,
		CareerStatus:       cmd.CareerStatus,
		MonthlyIncome:      cmd.MonthlyIncome,
		AgeYears:           cmd.AgeYears,
		AgeWeeks:           cmd.AgeWeeks,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Node edited",
		zap.String("sessionID", cmd.SessionID),
		zap.Int("nodeID", cmd.NodeID),
	)
	return nil
}
