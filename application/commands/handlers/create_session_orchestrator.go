// Package handlers contains the write-side handlers. Result-bearing
// operations are orchestrators called directly by the transport layer;
// result-less mutations are dispatched through the command bus.
package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/simulation"
)

// CreateSessionResult carries the new session's identity and its freshly
// seeded tree.
type CreateSessionResult struct {
	SessionID string                   `json:"session_id"`
	Tree      *simulation.TreeSnapshot `json:"tree"`
}

// CreateSessionOrchestrator boots new simulation sessions.
type CreateSessionOrchestrator struct {
	sessions *simulation.Manager
	logger   *zap.Logger
}

// NewCreateSessionOrchestrator creates a new session orchestrator
func NewCreateSessionOrchestrator(sessions *simulation.Manager, logger *zap.Logger) *CreateSessionOrchestrator {
	return &CreateSessionOrchestrator{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the create session command
func (h *CreateSessionOrchestrator) Handle(ctx context.Context, cmd commands.CreateSessionCommand) (*CreateSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	session, err := h.sessions.CreateSession(ctx, simulation.RootSeed{
		Record:     cmd.Seed(),
		Appearance: cmd.Appearance,
	})
	if err != nil {
		return nil, err
	}

	tree, err := session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot new session: %w", err)
	}

	h.logger.Info("Session created",
		zap.String("sessionID", session.ID()),
		zap.Int("nodes", len(tree.Nodes)),
	)

	return &CreateSessionResult{
		SessionID: session.ID(),
		Tree:      tree,
	}, nil
}
