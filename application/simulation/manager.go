package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifetree-backend/application/ports"
	"lifetree-backend/domain/config"
	pkgerrors "lifetree-backend/pkg/errors"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 100
)

// ManagerDeps bundles everything the session manager needs.
type ManagerDeps struct {
	Store        ports.SessionStore
	Generator    ports.ScenarioGenerator
	Portraits    ports.PortraitGenerator
	Publisher    ports.EventPublisher
	DomainConfig *config.DomainConfig
	PhysicsCfg   config.PhysicsConfig
	TickInterval time.Duration
	SessionTTL   time.Duration
	MaxSessions  int
	Instruments  Instruments
	Logger       *zap.Logger
}

// Manager owns the session registry. It enforces the concurrent session
// cap, expires idle sessions, and fans physics tuning updates out to every
// live session.
type Manager struct {
	logger      *zap.Logger
	store       ports.SessionStore
	generator   ports.ScenarioGenerator
	portraits   ports.PortraitGenerator
	publisher   ports.EventPublisher
	domainCfg   *config.DomainConfig
	instruments Instruments

	mu         sync.RWMutex
	physicsCfg config.PhysicsConfig

	tickInterval time.Duration
	sessionTTL   time.Duration
	maxSessions  int

	sweepStop chan struct{}
	stopOnce  sync.Once
}

// NewManager creates the manager and starts its idle-session sweeper.
func NewManager(deps ManagerDeps) *Manager {
	if deps.DomainConfig == nil {
		deps.DomainConfig = config.DefaultDomainConfig()
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultTickInterval
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = defaultSessionTTL
	}
	if deps.MaxSessions <= 0 {
		deps.MaxSessions = defaultMaxSessions
	}

	m := &Manager{
		logger:       deps.Logger,
		store:        deps.Store,
		generator:    deps.Generator,
		portraits:    deps.Portraits,
		publisher:    deps.Publisher,
		domainCfg:    deps.DomainConfig,
		instruments:  deps.Instruments,
		physicsCfg:   deps.PhysicsCfg.WithDefaults(),
		tickInterval: deps.TickInterval,
		sessionTTL:   deps.SessionTTL,
		maxSessions:  deps.MaxSessions,
		sweepStop:    make(chan struct{}),
	}

	go m.sweepLoop()
	return m
}

// CreateSession boots a new simulation session seeded with the given root
// scenario. Blank seed fields fall back to the configured defaults.
func (m *Manager) CreateSession(ctx context.Context, seed RootSeed) (*Session, error) {
	if m.store.Count(ctx) >= m.maxSessions {
		return nil, pkgerrors.ErrSessionLimitExceeded.WithDetail("limit", m.maxSessions)
	}

	m.applySeedDefaults(&seed)

	id := uuid.New().String()
	session, err := newSession(sessionConfig{
		id:           id,
		seed:         seed,
		domainCfg:    m.domainCfg,
		physicsCfg:   m.CurrentTuning(),
		tickInterval: m.tickInterval,
		logger:       m.logger,
		generator:    m.generator,
		portraits:    m.portraits,
		publisher:    m.publisher,
		instruments:  m.instruments,
	})
	if err != nil {
		return nil, err
	}

	if err := m.store.Put(ctx, session); err != nil {
		session.Stop()
		return nil, err
	}

	m.logger.Info("Session created",
		zap.String("session_id", id),
		zap.String("root_title", seed.Record.Title),
		zap.Int("active_sessions", m.store.Count(ctx)),
	)
	return session, nil
}

// Get returns a live session by ID and marks it as recently used.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	handle, ok := m.store.Get(ctx, id)
	if !ok {
		return nil, pkgerrors.ErrSessionNotFound.WithDetail("session_id", id)
	}
	session, ok := handle.(*Session)
	if !ok {
		return nil, pkgerrors.NewInternalError("session store returned a foreign handle")
	}
	session.Touch()
	return session, nil
}

// List returns all live sessions.
func (m *Manager) List(ctx context.Context) []*Session {
	handles := m.store.List(ctx)
	sessions := make([]*Session, 0, len(handles))
	for _, handle := range handles {
		if session, ok := handle.(*Session); ok {
			sessions = append(sessions, session)
		}
	}
	return sessions
}

// Count returns the number of live sessions.
func (m *Manager) Count(ctx context.Context) int {
	return m.store.Count(ctx)
}

// Destroy stops a session and removes it from the registry.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	handle, ok := m.store.Get(ctx, id)
	if !ok {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", id)
	}
	handle.Stop()
	if err := m.store.Remove(ctx, id); err != nil {
		return err
	}
	m.logger.Info("Session destroyed", zap.String("session_id", id))
	return nil
}

// ApplyTuning validates a new physics tuning and pushes it to every live
// session. Future sessions start with it as well.
func (m *Manager) ApplyTuning(cfg config.PhysicsConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.physicsCfg = cfg
	m.mu.Unlock()

	sessions := m.List(context.Background())
	for _, session := range sessions {
		session.ApplyTuning(cfg)
	}
	m.logger.Info("Physics tuning applied", zap.Int("sessions", len(sessions)))
	return nil
}

// CurrentTuning returns the tuning new sessions start with.
func (m *Manager) CurrentTuning() config.PhysicsConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.physicsCfg
}

// Stop shuts down the sweeper and every live session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.sweepStop)
	})

	ctx := context.Background()
	for _, handle := range m.store.List(ctx) {
		handle.Stop()
		if err := m.store.Remove(ctx, handle.ID()); err != nil {
			m.logger.Warn("Failed to remove session on shutdown",
				zap.String("session_id", handle.ID()),
				zap.Error(err),
			)
		}
	}
	m.logger.Info("Session manager stopped")
}

// sweepLoop expires sessions that have been idle longer than the TTL.
func (m *Manager) sweepLoop() {
	interval := m.sessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

// sweepIdle stops and removes every session past the idle TTL.
func (m *Manager) sweepIdle() {
	ctx := context.Background()
	cutoff := time.Now().Add(-m.sessionTTL)

	for _, handle := range m.store.List(ctx) {
		if handle.LastAccessedAt().After(cutoff) {
			continue
		}
		handle.Stop()
		if err := m.store.Remove(ctx, handle.ID()); err != nil {
			m.logger.Warn("Failed to remove expired session",
				zap.String("session_id", handle.ID()),
				zap.Error(err),
			)
			continue
		}
		m.logger.Info("Expired idle session",
			zap.String("session_id", handle.ID()),
			zap.Time("last_accessed", handle.LastAccessedAt()),
		)
	}
}

// applySeedDefaults fills blank root seed fields from the domain defaults.
func (m *Manager) applySeedDefaults(seed *RootSeed) {
	if seed.Record.Title == "" {
		seed.Record.Title = m.domainCfg.RootTitle
	}
	if seed.Record.AgeYears == 0 && seed.Record.AgeWeeks == 0 {
		seed.Record.AgeYears = m.domainCfg.RootAgeYears
		seed.Record.AgeWeeks = m.domainCfg.RootAgeWeeks
	}
	if seed.Record.MonthlyIncome == 0 {
		seed.Record.MonthlyIncome = m.domainCfg.RootMonthlyIncome
	}
}
