package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifetree-backend/application/queries"
	"lifetree-backend/application/queries/handlers"
	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
	domaincfg "lifetree-backend/domain/config"
	"lifetree-backend/infrastructure/generation"
	"lifetree-backend/infrastructure/persistence/memory"
	pkgerrors "lifetree-backend/pkg/errors"
)

func newStatsHandler(t *testing.T) (*handlers.GetSessionStatsHandler, *simulation.Manager) {
	t.Helper()

	cfg := domaincfg.DefaultDomainConfig()
	cfg.EnablePortraits = false

	manager := simulation.NewManager(simulation.ManagerDeps{
		Store:        memory.NewSessionStore(),
		Generator:    generation.NewLocalScenarioGenerator(3, 0),
		DomainConfig: cfg,
		TickInterval: 5 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
	t.Cleanup(manager.Stop)

	handler := handlers.NewGetSessionStatsHandler(
		manager,
		services.NewTreeStatsService(zap.NewNop()),
		zap.NewNop(),
	)
	return handler, manager
}

func TestGetSessionStatsHandler_CombinesCountersAndLayout(t *testing.T) {
	handler, manager := newStatsHandler(t)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, simulation.RootSeed{})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, queries.GetSessionStatsQuery{SessionID: session.ID()})
	require.NoError(t, err)

	require.NotNil(t, result.Stats)
	assert.Equal(t, session.ID(), result.Stats.SessionID)
	assert.Equal(t, 1, result.Stats.NodeCount)
	assert.Equal(t, 1, result.Stats.TreeVersion)

	require.NotNil(t, result.Layout)
	assert.Equal(t, 1, result.Layout.NodeCount)
	assert.Equal(t, 1, result.Layout.MaxDepth)

	assert.Nil(t, result.Versions, "versions ride along only on request")
}

func TestGetSessionStatsHandler_IncludesVersionsOnRequest(t *testing.T) {
	handler, manager := newStatsHandler(t)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, simulation.RootSeed{})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, queries.GetSessionStatsQuery{
		SessionID:       session.ID(),
		IncludeVersions: true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Versions)
	assert.Equal(t, 1, result.Versions[0].Version)
	assert.NotEmpty(t, result.Versions[0].Checksum)
}

func TestGetSessionStatsHandler_UnknownSession(t *testing.T) {
	handler, _ := newStatsHandler(t)

	_, err := handler.Handle(context.Background(), queries.GetSessionStatsQuery{SessionID: "missing"})
	assert.ErrorIs(t, err, pkgerrors.ErrSessionNotFound)
}

func TestGetSessionStatsHandler_InvalidQuery(t *testing.T) {
	handler, _ := newStatsHandler(t)

	_, err := handler.Handle(context.Background(), queries.GetSessionStatsQuery{})
	assert.Error(t, err)
}
