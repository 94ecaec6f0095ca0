// Package sagas contains compensation logic for multi-step tree mutations
// that must unwind cleanly when a later step fails.
package sagas

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending      SagaState = "PENDING"
	SagaStateRunning      SagaState = "RUNNING"
	SagaStateCompleted    SagaState = "COMPLETED"
	SagaStateFailed       SagaState = "FAILED"
	SagaStateCompensating SagaState = "COMPENSATING"
	SagaStateCompensated  SagaState = "COMPENSATED"
)

// Compensation undoes one previously applied step.
type Compensation struct {
	Name string
	Undo func() error
}

// ExpansionSaga journals the visible effects of one node expansion so a
// generator failure can unwind all of them. Unlike a step runner, the saga
// does not drive the work itself: expansion effects land asynchronously as
// scenario records arrive, and each one registers its compensation here as
// it is applied.
//
// The saga is not safe for concurrent use. The owning session confines it
// to its own loop.
type ExpansionSaga struct {
	id        string
	sessionID string
	state     SagaState
	journal   []Compensation
	startedAt time.Time
	logger    *zap.Logger
}

// NewExpansionSaga creates a saga for a single expansion attempt.
func NewExpansionSaga(sessionID string, logger *zap.Logger) *ExpansionSaga {
	return &ExpansionSaga{
		id:        generateSagaID(),
		sessionID: sessionID,
		state:     SagaStatePending,
		journal:   make([]Compensation, 0, 4),
		startedAt: time.Now(),
		logger:    logger,
	}
}

// Begin marks the saga as running.
func (s *ExpansionSaga) Begin() {
	s.state = SagaStateRunning
	s.logger.Debug("Expansion saga started",
		zap.String("saga_id", s.id),
		zap.String("session_id", s.sessionID),
	)
}

// Record registers the compensation for a step that has just been applied.
func (s *ExpansionSaga) Record(name string, undo func() error) {
	s.journal = append(s.journal, Compensation{Name: name, Undo: undo})
}

// Complete marks the saga as finished and discards the journal.
func (s *ExpansionSaga) Complete() {
	s.state = SagaStateCompleted
	s.journal = nil
	s.logger.Debug("Expansion saga completed",
		zap.String("saga_id", s.id),
		zap.String("session_id", s.sessionID),
		zap.Duration("elapsed", time.Since(s.startedAt)),
	)
}

// Unwind runs the journal in reverse order. A failing compensation is
// logged and skipped so the remaining steps still run.
func (s *ExpansionSaga) Unwind(cause error) {
	s.state = SagaStateFailed
	s.logger.Warn("Expansion saga failed, compensating",
		zap.String("saga_id", s.id),
		zap.String("session_id", s.sessionID),
		zap.Int("steps_to_compensate", len(s.journal)),
		zap.Error(cause),
	)

	s.state = SagaStateCompensating
	for i := len(s.journal) - 1; i >= 0; i-- {
		step := s.journal[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(); err != nil {
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)
			// Continue compensating other steps even if one fails
		}
	}
	s.journal = nil
	s.state = SagaStateCompensated
}

// State returns the current state of the saga
func (s *ExpansionSaga) State() SagaState {
	return s.state
}

// ID returns the saga ID
func (s *ExpansionSaga) ID() string {
	return s.id
}

// StartedAt returns when the saga began.
func (s *ExpansionSaga) StartedAt() time.Time {
	return s.startedAt
}

// generateSagaID generates a unique saga ID
func generateSagaID() string {
	return fmt.Sprintf("saga_%d", time.Now().UnixNano())
}
