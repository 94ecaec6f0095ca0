// Package simulation hosts the live per-session actors that own a scenario
// tree, advance its physics on a fixed tick, and serialize all mutations
// and reads through a single loop.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifetree-backend/application/ports"
	"lifetree-backend/application/sagas"
	"lifetree-backend/domain/config"
	"lifetree-backend/domain/core/aggregates"
	"lifetree-backend/domain/core/entities"
	"lifetree-backend/domain/core/validators"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/events"
	"lifetree-backend/domain/physics"
	"lifetree-backend/domain/versioning"
	pkgerrors "lifetree-backend/pkg/errors"
)

const defaultTickInterval = 50 * time.Millisecond

// maxPendingNotices bounds the queue of lifecycle notices waiting for the
// next frame. Overflow drops the newest notices; clients resync from a
// snapshot anyway.
const maxPendingNotices = 256

// RootSeed is the caller-provided starting scenario for a session's tree.
// It is retained so a reset can rebuild the same starting point.
type RootSeed struct {
	Record     ports.ScenarioRecord
	Appearance ports.AppearanceRecord
}

// ExpandResult identifies a started expansion batch and the placeholder
// children it spawned.
type ExpandResult struct {
	BatchID  string `json:"batch_id"`
	ParentID int    `json:"parent_id"`
	ChildIDs []int  `json:"child_ids"`
}

// EditRequest is a partial update of one node's scenario content. Nil
// fields are left unchanged.
type EditRequest struct {
	NodeID             int
	Title              *string
	ChangeDescription  *string
	Location           *string
	RelationshipStatus *string
	LivingSituation    *string
	CareerStatus       *string
	MonthlyIncome      *float64
	AgeYears           *int
	AgeWeeks           *int
}

// expansionBatch tracks one in-flight generation epoch. Records are applied
// to slots in emission order; a slot consumed by a user edit drops its
// record on arrival. The batch dies on completion, failure, or tree reset,
// after which late records are discarded.
type expansionBatch struct {
	token    string
	parentID valueobjects.NodeID
	children []valueobjects.NodeID
	consumed []bool
	applied  int
	saga     *sagas.ExpansionSaga
	cancel   context.CancelFunc
}

// Instruments receives hot-path measurements from the loop. Implementations
// must be cheap and non-blocking.
type Instruments interface {
	ObserveStep(d time.Duration)
}

// sessionConfig bundles everything a session needs at construction.
type sessionConfig struct {
	id           string
	seed         RootSeed
	domainCfg    *config.DomainConfig
	physicsCfg   config.PhysicsConfig
	tickInterval time.Duration
	logger       *zap.Logger
	generator    ports.ScenarioGenerator
	portraits    ports.PortraitGenerator
	publisher    ports.EventPublisher
	instruments  Instruments
}

// Session owns one scenario tree and its simulation loop. All access to
// the tree happens on the loop goroutine; public methods post closures to
// the loop and wait for them, so callers never observe a torn state.
type Session struct {
	id          string
	logger      *zap.Logger
	domainCfg   *config.DomainConfig
	validator   *validators.ScenarioRecordValidator
	generator   ports.ScenarioGenerator
	portraits   ports.PortraitGenerator
	publisher   ports.EventPublisher
	versions    *versioning.VersioningService
	instruments Instruments

	seed   RootSeed
	tree   *aggregates.ScenarioTree
	engine *physics.Engine

	tickInterval time.Duration
	tick         uint64

	ops      chan func()
	done     chan struct{}
	stopOnce sync.Once

	sinks   map[FrameSink]struct{}
	batches map[string]*expansionBatch
	notices []EventNotice

	createdAt    time.Time
	lastAccessed atomic.Int64
}

// newSession builds the tree from the seed and starts the loop.
func newSession(cfg sessionConfig) (*Session, error) {
	if cfg.tickInterval <= 0 {
		cfg.tickInterval = defaultTickInterval
	}

	s := &Session{
		id:           cfg.id,
		logger:       cfg.logger.With(zap.String("session_id", cfg.id)),
		domainCfg:    cfg.domainCfg,
		validator:    validators.NewScenarioRecordValidator(cfg.domainCfg),
		generator:    cfg.generator,
		portraits:    cfg.portraits,
		publisher:    cfg.publisher,
		versions:     versioning.NewVersioningService(versioning.DefaultVersioningPolicy()),
		instruments:  cfg.instruments,
		seed:         cfg.seed,
		engine:       physics.NewEngine(cfg.physicsCfg),
		tickInterval: cfg.tickInterval,
		ops:          make(chan func(), 64),
		done:         make(chan struct{}),
		sinks:        make(map[FrameSink]struct{}),
		batches:      make(map[string]*expansionBatch),
		createdAt:    time.Now(),
	}
	s.lastAccessed.Store(s.createdAt.UnixNano())

	tree, err := s.buildTree()
	if err != nil {
		return nil, err
	}
	s.tree = tree
	s.drainTreeEvents()
	s.captureVersion(versioning.TriggerInitialized, nil)

	go s.run()
	return s, nil
}

// buildTree constructs a fresh tree seeded with the session's root scenario.
func (s *Session) buildTree() (*aggregates.ScenarioTree, error) {
	rec := s.seed.Record
	profile, err := valueobjects.NewScenarioProfileWithConfig(
		rec.Title, rec.ChangeDescription, rec.Location,
		rec.RelationshipStatus, rec.LivingSituation, rec.CareerStatus,
		rec.MonthlyIncome, s.domainCfg,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid root scenario: %w", err)
	}
	age, err := valueobjects.NewAge(rec.AgeYears, rec.AgeWeeks)
	if err != nil {
		return nil, fmt.Errorf("invalid root age: %w", err)
	}
	appearance, err := appearanceFromRecord(s.seed.Appearance)
	if err != nil {
		return nil, fmt.Errorf("invalid root appearance: %w", err)
	}

	tree := aggregates.NewScenarioTree(s.domainCfg, nil)
	if _, err := tree.InitializeWithRoot(profile, age, appearance); err != nil {
		return nil, err
	}
	return tree, nil
}

// run is the session loop. It is the only goroutine that touches the tree.
func (s *Session) run() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.done:
			for _, batch := range s.batches {
				batch.cancel()
			}
			s.logger.Debug("Session loop stopped", zap.Uint64("ticks", s.tick))
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			stepStart := time.Now()
			s.engine.Step(s.tree, elapsed)
			if s.instruments != nil {
				s.instruments.ObserveStep(time.Since(stepStart))
			}
			s.tick++
			s.publishFrame()
		case op := <-s.ops:
			op()
		}
	}
}

// publishFrame renders the current motion state to every subscribed sink.
// Queued notices are taken unconditionally so they cannot pile up while
// nobody is subscribed.
func (s *Session) publishFrame() {
	notices := s.notices
	s.notices = nil
	if len(s.sinks) == 0 || !s.domainCfg.EnableStreaming {
		return
	}
	frame := buildFrame(s.id, s.tick, s.tree)
	frame.Events = notices
	for sink := range s.sinks {
		sink.SendFrame(frame)
	}
}

// do posts fn to the loop and waits until it has run. It fails fast when
// the context expires or the session stops before fn is picked up.
func (s *Session) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}

	select {
	case s.ops <- wrapped:
	case <-s.done:
		return pkgerrors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-s.done:
		return pkgerrors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Posts to a stopped session are dropped.
func (s *Session) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.done:
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastAccessedAt returns the time of the most recent client activity
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}

// Touch marks the session as recently used
func (s *Session) Touch() {
	s.lastAccessed.Store(time.Now().UnixNano())
}

// Stop shuts down the loop. It is safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// ApplyTuning swaps the physics tuning without blocking the caller.
// Edge targets fixed at creation keep their lengths.
func (s *Session) ApplyTuning(cfg config.PhysicsConfig) {
	s.post(func() {
		s.engine.SetConfig(cfg)
		s.logger.Info("Physics tuning updated")
	})
}

// Subscribe attaches a frame sink to the session's tick output.
func (s *Session) Subscribe(ctx context.Context, sink FrameSink) error {
	return s.do(ctx, func() {
		s.sinks[sink] = struct{}{}
	})
}

// Unsubscribe detaches a frame sink.
func (s *Session) Unsubscribe(ctx context.Context, sink FrameSink) error {
	return s.do(ctx, func() {
		delete(s.sinks, sink)
	})
}

// Expand starts an expansion batch under the given parent and returns its
// batch token together with the spawned placeholder IDs. Scenario content
// arrives asynchronously as the generator emits records.
func (s *Session) Expand(ctx context.Context, parentID int) (*ExpandResult, error) {
	s.Touch()
	var (
		result *ExpandResult
		opErr  error
	)
	if err := s.do(ctx, func() { result, opErr = s.expand(parentID) }); err != nil {
		return nil, err
	}
	return result, opErr
}

// EditNode applies a partial scenario edit to one node.
func (s *Session) EditNode(ctx context.Context, req EditRequest) error {
	s.Touch()
	var opErr error
	if err := s.do(ctx, func() { opErr = s.editNode(req) }); err != nil {
		return err
	}
	return opErr
}

// MoveNode drops a node at a new position and cancels its motion.
func (s *Session) MoveNode(ctx context.Context, nodeID int, x, y float64) error {
	s.Touch()
	var opErr error
	if err := s.do(ctx, func() { opErr = s.moveNode(nodeID, x, y) }); err != nil {
		return err
	}
	return opErr
}

// Reset discards the tree and all in-flight batches and rebuilds the tree
// from the original root seed.
func (s *Session) Reset(ctx context.Context) error {
	s.Touch()
	var opErr error
	if err := s.do(ctx, func() { opErr = s.reset() }); err != nil {
		return err
	}
	return opErr
}

// Snapshot returns a deep copy of the tree's full state.
func (s *Session) Snapshot(ctx context.Context) (*TreeSnapshot, error) {
	s.Touch()
	var snap *TreeSnapshot
	if err := s.do(ctx, func() { snap = buildTreeSnapshot(s.id, s.tree) }); err != nil {
		return nil, err
	}
	return snap, nil
}

// NodeDetail returns the full state of one node.
func (s *Session) NodeDetail(ctx context.Context, nodeID int) (*NodeSnapshot, error) {
	s.Touch()
	var (
		snap  *NodeSnapshot
		opErr error
	)
	err := s.do(ctx, func() {
		node, findErr := s.findNode(nodeID)
		if findErr != nil {
			opErr = findErr
			return
		}
		ns := buildNodeSnapshot(node)
		snap = &ns
	})
	if err != nil {
		return nil, err
	}
	return snap, opErr
}

// Ancestry returns the root-first chain of nodes ending at the given node.
func (s *Session) Ancestry(ctx context.Context, nodeID int) ([]NodeSnapshot, error) {
	s.Touch()
	var (
		chain []NodeSnapshot
		opErr error
	)
	err := s.do(ctx, func() {
		node, findErr := s.findNode(nodeID)
		if findErr != nil {
			opErr = findErr
			return
		}
		ancestors, chainErr := s.tree.AncestorChain(node.ID())
		if chainErr != nil {
			opErr = chainErr
			return
		}
		chain = make([]NodeSnapshot, 0, len(ancestors))
		for _, ancestor := range ancestors {
			chain = append(chain, buildNodeSnapshot(ancestor))
		}
	})
	if err != nil {
		return nil, err
	}
	return chain, opErr
}

// Stats summarizes the session's motion and bookkeeping state.
func (s *Session) Stats(ctx context.Context) (*SessionStats, error) {
	s.Touch()
	var stats *SessionStats
	if err := s.do(ctx, func() { stats = s.buildStats() }); err != nil {
		return nil, err
	}
	return stats, nil
}

// VersionHistory returns the retained tree versions, oldest first.
func (s *Session) VersionHistory(ctx context.Context) ([]*versioning.TreeVersion, error) {
	s.Touch()
	var history []*versioning.TreeVersion
	if err := s.do(ctx, func() { history = s.versions.History() }); err != nil {
		return nil, err
	}
	return history, nil
}

// expand runs on the loop.
func (s *Session) expand(parentID int) (*ExpandResult, error) {
	parent, err := s.findNode(parentID)
	if err != nil {
		return nil, err
	}
	if s.isPendingPlaceholder(parent.ID()) {
		return nil, pkgerrors.ErrExpansionInFlight
	}

	chain, err := s.tree.AncestorChain(parent.ID())
	if err != nil {
		return nil, err
	}
	if len(chain) >= s.domainCfg.MaxTreeDepth {
		return nil, pkgerrors.ErrTreeDepthExceeded
	}

	if err := parent.MarkExpanded(); err != nil {
		return nil, err
	}

	saga := sagas.NewExpansionSaga(s.id, s.logger)
	saga.Begin()
	saga.Record("mark parent expanded", func() error {
		parent.RevertExpansion()
		return nil
	})

	count := s.domainCfg.ChildrenPerExpansion
	children := make([]valueobjects.NodeID, 0, count)
	restLength := s.engine.Config().SpringLength
	for i := 0; i < count; i++ {
		child, spawnErr := s.tree.SpawnChild(parent.ID(), restLength)
		if spawnErr != nil {
			saga.Unwind(spawnErr)
			s.drainTreeEvents()
			return nil, spawnErr
		}
		childID := child.ID()
		saga.Record("remove placeholder", func() error {
			return s.tree.RemoveNode(childID)
		})
		children = append(children, childID)
	}

	token := uuid.New().String()
	genCtx, cancel := context.WithTimeout(context.Background(), s.domainCfg.GenerationTimeout)
	batch := &expansionBatch{
		token:    token,
		parentID: parent.ID(),
		children: children,
		consumed: make([]bool, len(children)),
		saga:     saga,
		cancel:   cancel,
	}
	s.batches[token] = batch

	ancestry := make([]ports.ScenarioRecord, 0, len(chain))
	for _, ancestor := range chain {
		ancestry = append(ancestry, recordFromNode(ancestor))
	}

	s.drainTreeEvents()
	s.publishEvents(events.NewExpansionStarted(s.tree.ID().String(), parent.ID(), token, children, time.Now()))

	go s.runGeneration(genCtx, token, ancestry, len(children))

	s.logger.Info("Expansion started",
		zap.String("batch_id", token),
		zap.Int("parent_id", parentID),
		zap.Int("children", len(children)),
	)

	result := &ExpandResult{BatchID: token, ParentID: parentID, ChildIDs: nodeIDInts(children)}
	return result, nil
}

// runGeneration drives the scenario generator off the loop and posts each
// record back in. Mailbox ordering guarantees every record is applied
// before the completion marker.
func (s *Session) runGeneration(ctx context.Context, token string, ancestry []ports.ScenarioRecord, count int) {
	err := s.generator.Generate(ctx, ancestry, count, func(rec ports.ScenarioRecord) {
		s.post(func() { s.applyRecord(token, rec) })
	})
	if err != nil {
		s.post(func() { s.failBatch(token, err) })
		return
	}
	s.post(func() { s.completeBatch(token) })
}

// applyRecord lands one generated scenario on the next open slot of its
// batch. Runs on the loop.
func (s *Session) applyRecord(token string, rec ports.ScenarioRecord) {
	batch, ok := s.batches[token]
	if !ok {
		s.logger.Debug("Dropping record for dead batch", zap.String("batch_id", token))
		return
	}
	if batch.applied >= len(batch.children) {
		s.logger.Warn("Generator emitted more records than slots",
			zap.String("batch_id", token),
			zap.Int("slots", len(batch.children)),
		)
		return
	}

	slot := batch.applied
	batch.applied++
	childID := batch.children[slot]

	if batch.consumed[slot] {
		s.logger.Debug("Slot consumed by user edit, dropping record",
			zap.String("batch_id", token),
			zap.Int("slot", slot),
		)
		return
	}

	child := s.tree.FindNode(childID)
	parent := s.tree.FindNode(batch.parentID)
	if child == nil || parent == nil {
		s.failBatch(token, fmt.Errorf("batch %s lost node %d before its record arrived", token, childID.Int()))
		return
	}

	if err := s.validator.ValidateNarrativeFields(
		rec.Title, rec.ChangeDescription, rec.Location,
		rec.RelationshipStatus, rec.LivingSituation, rec.CareerStatus,
	); err != nil {
		s.failBatch(token, fmt.Errorf("generated record rejected: %w", err))
		return
	}
	if err := s.validator.ValidateIncome(rec.MonthlyIncome); err != nil {
		s.failBatch(token, fmt.Errorf("generated record rejected: %w", err))
		return
	}
	age, err := s.validator.NormalizeAge(rec.AgeYears, rec.AgeWeeks, parent.Age())
	if err != nil {
		s.failBatch(token, fmt.Errorf("generated record rejected: %w", err))
		return
	}

	profile, err := valueobjects.NewScenarioProfileWithConfig(
		rec.Title, rec.ChangeDescription, rec.Location,
		rec.RelationshipStatus, rec.LivingSituation, rec.CareerStatus,
		rec.MonthlyIncome, s.domainCfg,
	)
	if err != nil {
		s.failBatch(token, fmt.Errorf("generated record rejected: %w", err))
		return
	}

	if err := child.ApplyScenario(profile, age, child.Appearance()); err != nil {
		s.failBatch(token, err)
		return
	}

	s.drainTreeEvents()

	if s.domainCfg.EnablePortraits && s.portraits != nil {
		go s.runPortrait(childID.Int(), rec, age.Years(), appearanceRecord(child.Appearance()))
	}

	s.logger.Debug("Scenario record applied",
		zap.String("batch_id", token),
		zap.Int("slot", slot),
		zap.Int("node_id", childID.Int()),
	)
}

// completeBatch finalizes a batch once the generator has returned. Runs on
// the loop after every record post.
func (s *Session) completeBatch(token string) {
	batch, ok := s.batches[token]
	if !ok {
		return
	}
	if batch.applied < len(batch.children) {
		s.failBatch(token, fmt.Errorf("generator returned after %d of %d records", batch.applied, len(batch.children)))
		return
	}

	delete(s.batches, token)
	batch.cancel()
	batch.saga.Complete()

	s.publishEvents(events.NewExpansionCompleted(s.tree.ID().String(), batch.parentID, token, time.Now()))

	changes := make([]versioning.Change, 0, len(batch.children))
	for _, childID := range batch.children {
		changes = append(changes, versioning.Change{
			Type:      versioning.ChangeTypeNodeSpawned,
			NodeID:    childID.Int(),
			Timestamp: time.Now(),
		})
	}
	s.captureVersion(versioning.TriggerExpansion, changes)

	s.logger.Info("Expansion completed",
		zap.String("batch_id", token),
		zap.Int("parent_id", batch.parentID.Int()),
	)
}

// failBatch kills a batch and unwinds every visible effect it had. Runs on
// the loop.
func (s *Session) failBatch(token string, cause error) {
	batch, ok := s.batches[token]
	if !ok {
		return
	}
	delete(s.batches, token)
	batch.cancel()
	batch.saga.Unwind(cause)
	s.drainTreeEvents()

	s.publishEvents(events.NewExpansionFailed(s.tree.ID().String(), batch.parentID, token, cause.Error(), time.Now()))

	s.logger.Warn("Expansion failed and was rolled back",
		zap.String("batch_id", token),
		zap.Int("parent_id", batch.parentID.Int()),
		zap.Error(cause),
	)
}

// runPortrait renders one portrait off the loop and posts the handle back.
// Failures are logged and leave the node untouched.
func (s *Session) runPortrait(nodeID int, rec ports.ScenarioRecord, ageYears int, appearance ports.AppearanceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), s.domainCfg.PortraitTimeout)
	defer cancel()

	handle, err := s.portraits.GeneratePortrait(ctx, ports.PortraitRequest{
		SessionID:  s.id,
		NodeID:     nodeID,
		Appearance: appearance,
		AgeYears:   ageYears,
		Scenario:   rec,
	})
	if err != nil {
		s.logger.Warn("Portrait generation failed",
			zap.Int("node_id", nodeID),
			zap.Error(err),
		)
		return
	}

	s.post(func() {
		id, idErr := valueobjects.NewNodeID(nodeID)
		if idErr != nil {
			return
		}
		node := s.tree.FindNode(id)
		if node == nil {
			return
		}
		ref, refErr := valueobjects.NewPortraitRef(handle)
		if refErr != nil {
			s.logger.Warn("Discarding invalid portrait handle", zap.Error(refErr))
			return
		}
		if setErr := node.SetPortrait(ref); setErr != nil {
			s.logger.Warn("Failed to attach portrait", zap.Error(setErr))
			return
		}
		s.drainTreeEvents()
	})
}

// editNode runs on the loop.
func (s *Session) editNode(req EditRequest) error {
	node, err := s.findNode(req.NodeID)
	if err != nil {
		return err
	}

	// Editing a placeholder claims its slot; the generated record for it
	// is dropped when it arrives.
	s.consumeSlot(node.ID())

	profile := node.Profile()
	title := profile.Title()
	changeDescription := profile.ChangeDescription()
	location := profile.Location()
	relationshipStatus := profile.RelationshipStatus()
	livingSituation := profile.LivingSituation()
	careerStatus := profile.CareerStatus()
	monthlyIncome := profile.MonthlyIncome()

	if req.Title != nil {
		title = *req.Title
	}
	if req.ChangeDescription != nil {
		changeDescription = *req.ChangeDescription
	}
	if req.Location != nil {
		location = *req.Location
	}
	if req.RelationshipStatus != nil {
		relationshipStatus = *req.RelationshipStatus
	}
	if req.LivingSituation != nil {
		livingSituation = *req.LivingSituation
	}
	if req.CareerStatus != nil {
		careerStatus = *req.CareerStatus
	}
	if req.MonthlyIncome != nil {
		monthlyIncome = *req.MonthlyIncome
	}

	if err := s.validator.ValidateNarrativeFields(
		title, changeDescription, location, relationshipStatus, livingSituation, careerStatus,
	); err != nil {
		return err
	}
	if err := s.validator.ValidateIncome(monthlyIncome); err != nil {
		return err
	}

	newProfile, err := valueobjects.NewScenarioProfileWithConfig(
		title, changeDescription, location, relationshipStatus, livingSituation, careerStatus,
		monthlyIncome, s.domainCfg,
	)
	if err != nil {
		return err
	}

	if req.AgeYears != nil || req.AgeWeeks != nil {
		years := node.Age().Years()
		weeks := node.Age().Weeks()
		if req.AgeYears != nil {
			years = *req.AgeYears
		}
		if req.AgeWeeks != nil {
			weeks = *req.AgeWeeks
		}

		var parentAge valueobjects.Age
		if pid := node.ParentID(); pid != nil {
			if parent := s.tree.FindNode(*pid); parent != nil {
				parentAge = parent.Age()
			}
		}
		age, ageErr := s.validator.NormalizeAge(years, weeks, parentAge)
		if ageErr != nil {
			return ageErr
		}
		if err := node.ApplyScenario(newProfile, age, node.Appearance()); err != nil {
			return err
		}
	} else if err := node.EditProfile(newProfile); err != nil {
		return err
	}

	s.drainTreeEvents()
	return nil
}

// moveNode runs on the loop.
func (s *Session) moveNode(nodeID int, x, y float64) error {
	node, err := s.findNode(nodeID)
	if err != nil {
		return err
	}
	if node.IsRoot() {
		return pkgerrors.ErrRootNodePinned
	}
	if err := s.validator.ValidatePosition(x, y); err != nil {
		return err
	}
	position, err := valueobjects.NewPosition(x, y)
	if err != nil {
		return err
	}
	if err := node.MoveTo(position); err != nil {
		return err
	}
	s.drainTreeEvents()
	return nil
}

// reset runs on the loop.
func (s *Session) reset() error {
	for token, batch := range s.batches {
		batch.cancel()
		s.logger.Debug("Reset invalidated in-flight batch", zap.String("batch_id", token))
	}
	s.batches = make(map[string]*expansionBatch)

	s.drainTreeEvents()

	tree, err := s.buildTree()
	if err != nil {
		return fmt.Errorf("failed to rebuild tree: %w", err)
	}
	s.tree = tree
	s.tick = 0

	s.versions.Reset()
	s.captureVersion(versioning.TriggerReset, []versioning.Change{{
		Type:      versioning.ChangeTypeTreeReset,
		NodeID:    tree.Root().ID().Int(),
		Timestamp: time.Now(),
	}})

	s.drainTreeEvents()
	s.publishEvents(events.NewTreeReset(s.tree.ID().String(), time.Now()))

	s.logger.Info("Session reset to root scenario")
	return nil
}

// buildStats runs on the loop.
func (s *Session) buildStats() *SessionStats {
	nodes := s.tree.Nodes()

	var meanSpeed, maxSpeed float64
	growing := 0
	expanded := 0
	for _, node := range nodes {
		speed := node.Velocity().Speed()
		meanSpeed += speed
		if speed > maxSpeed {
			maxSpeed = speed
		}
		if node.IsGrowing() {
			growing++
		}
		if node.IsExpanded() {
			expanded++
		}
	}
	if len(nodes) > 0 {
		meanSpeed /= float64(len(nodes))
	}

	stats := &SessionStats{
		SessionID:      s.id,
		NodeCount:      s.tree.NodeCount(),
		EdgeCount:      s.tree.EdgeCount(),
		GrowingCount:   growing,
		ExpandedCount:  expanded,
		PendingBatches: len(s.batches),
		MeanSpeed:      meanSpeed,
		MaxSpeed:       maxSpeed,
		Tick:           s.tick,
		CreatedAt:      s.createdAt,
		LastAccessedAt: s.LastAccessedAt(),
	}
	if latest := s.versions.Latest(); latest != nil {
		stats.TreeVersion = latest.Version
		stats.TreeChecksum = latest.Checksum
	}
	return stats
}

// findNode resolves an integer ID to a live node. Runs on the loop.
func (s *Session) findNode(nodeID int) (*entities.Node, error) {
	id, err := valueobjects.NewNodeID(nodeID)
	if err != nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID)
	}
	node := s.tree.FindNode(id)
	if node == nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID)
	}
	return node, nil
}

// isPendingPlaceholder reports whether the node is still waiting for its
// generated record. Runs on the loop.
func (s *Session) isPendingPlaceholder(id valueobjects.NodeID) bool {
	for _, batch := range s.batches {
		for slot := batch.applied; slot < len(batch.children); slot++ {
			if batch.children[slot].Equals(id) && !batch.consumed[slot] {
				return true
			}
		}
	}
	return false
}

// consumeSlot claims any pending slot held by the node. Runs on the loop.
func (s *Session) consumeSlot(id valueobjects.NodeID) {
	for _, batch := range s.batches {
		for slot := batch.applied; slot < len(batch.children); slot++ {
			if batch.children[slot].Equals(id) {
				batch.consumed[slot] = true
			}
		}
	}
}

// captureVersion records a tree revision, logging instead of failing the
// surrounding operation when the snapshot cannot be taken.
func (s *Session) captureVersion(trigger versioning.Trigger, changes []versioning.Change) {
	if !s.versions.Policy().ShouldCapture(s.versions.Latest(), s.tree.NodeCount()) {
		return
	}
	if _, err := s.versions.Capture(s.tree, trigger, changes); err != nil {
		s.logger.Warn("Failed to capture tree version", zap.Error(err))
	}
}

// drainTreeEvents publishes and clears all uncommitted domain events.
func (s *Session) drainTreeEvents() {
	evts := s.tree.GetUncommittedEvents()
	if len(evts) == 0 {
		return
	}
	s.tree.MarkEventsAsCommitted()
	s.publishEvents(evts...)
}

// publishEvents forwards events to the publisher and queues their wire
// notices for the next frame. Called only from the loop and from the
// constructor before the loop starts, so the queue needs no lock.
func (s *Session) publishEvents(evts ...events.DomainEvent) {
	for _, evt := range evts {
		if len(s.notices) >= maxPendingNotices {
			break
		}
		s.notices = append(s.notices, noticeFromEvent(evt))
	}
	if s.publisher == nil || len(evts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishBatch(ctx, evts); err != nil {
		s.logger.Warn("Failed to publish events", zap.Error(err))
	}
}

// recordFromNode flattens a node's scenario into the generator wire form.
func recordFromNode(node *entities.Node) ports.ScenarioRecord {
	profile := node.Profile()
	return ports.ScenarioRecord{
		Title:              profile.Title(),
		ChangeDescription:  profile.ChangeDescription(),
		AgeYears:           node.Age().Years(),
		AgeWeeks:           node.Age().Weeks(),
		Location:           profile.Location(),
		RelationshipStatus: profile.RelationshipStatus(),
		LivingSituation:    profile.LivingSituation(),
		CareerStatus:       profile.CareerStatus(),
		MonthlyIncome:      profile.MonthlyIncome(),
	}
}

// appearanceFromRecord builds the appearance value object, falling back to
// the default appearance when every field is blank.
func appearanceFromRecord(rec ports.AppearanceRecord) (valueobjects.Appearance, error) {
	if rec == (ports.AppearanceRecord{}) {
		return valueobjects.DefaultAppearance(), nil
	}
	return valueobjects.NewAppearance(
		rec.HairColor, rec.HairStyle, rec.EyeColor,
		rec.SkinTone, rec.Build, rec.ClothingStyle,
	)
}

// nodeIDInts converts NodeIDs to their wire form.
func nodeIDInts(ids []valueobjects.NodeID) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Int())
	}
	return out
}
