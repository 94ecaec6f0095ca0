// Package physics implements the force simulation that lays out a scenario
// tree. The engine is the sole mutator of kinematic node and edge state;
// everything else reads positions and sizes it produced.
package physics

import (
	"math"
	"time"

	"lifetree-backend/domain/config"
	"lifetree-backend/domain/core/aggregates"
	"lifetree-backend/domain/core/entities"
	"lifetree-backend/domain/core/valueobjects"
)

const (
	// minDistance is the force-evaluation floor. Below it the inverse-square
	// term is evaluated at minDistance instead of the true distance, so a
	// near-coincident pair gets a strong finite push rather than a division
	// blow-up.
	minDistance = 1.0

	// ascentMargin is how far above its parent a child must rise before the
	// upward bias stops pulling. Inside the band the bias is proportional to
	// the remaining distance, so it fades out instead of cutting off.
	ascentMargin = 80.0
)

// Engine advances one tree by discrete steps. It holds only tuning; all
// simulation state lives in the tree, so one engine value is reusable
// across resets.
type Engine struct {
	cfg config.PhysicsConfig
}

// NewEngine creates an engine with the given tuning. Zero-valued fields
// fall back to the defaults.
func NewEngine(cfg config.PhysicsConfig) *Engine {
	return &Engine{cfg: cfg.WithDefaults()}
}

// Config returns the live tuning
func (e *Engine) Config() config.PhysicsConfig {
	return e.cfg
}

// SetConfig swaps the tuning. Existing edge rest lengths keep the value
// captured at their creation; only forces and new edges see the change.
func (e *Engine) SetConfig(cfg config.PhysicsConfig) {
	e.cfg = cfg.WithDefaults()
}

// Step advances the simulation by one tick. elapsed is the wall-clock time
// since the previous step and drives only the growth animations; forces
// integrate with a unit timestep. A nil or empty tree is a no-op.
func (e *Engine) Step(tree *aggregates.ScenarioTree, elapsed time.Duration) {
	if tree == nil {
		return
	}
	nodes := tree.Nodes()
	if len(nodes) == 0 {
		return
	}

	elapsedSeconds := elapsed.Seconds()

	for _, node := range nodes {
		node.AdvanceGrowth(elapsedSeconds, e.cfg.GrowthDurationSeconds)
	}
	for _, edge := range tree.Edges() {
		edge.AdvanceGrowth(elapsedSeconds, e.cfg.GrowthDurationSeconds)
	}

	e.applyRepulsion(nodes)
	e.applySprings(tree)
	e.applyAscentBias(tree, nodes)

	for _, node := range nodes {
		node.Integrate(e.cfg.Friction, e.cfg.MaxVelocity)
	}

	// Roots are pinned after integration, so no force accumulated this
	// step can displace them.
	for _, node := range nodes {
		if node.IsRoot() {
			node.PinTo(valueobjects.Origin())
		}
	}
}

// applyRepulsion pushes every unordered node pair apart with an
// inverse-square force along the pair's axis. The force is scaled by the
// product of the two growth progresses, so a half-grown node shoves its
// siblings at a quarter strength and a fresh placeholder not at all.
func (e *Engine) applyRepulsion(nodes []*entities.Node) {
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]

			dx, dy := a.Position().VectorTo(b.Position())
			d := math.Hypot(dx, dy)
			if d > e.cfg.RepulsionRange {
				continue
			}

			scale := a.GrowthProgress() * b.GrowthProgress()
			if scale == 0 {
				continue
			}

			var ux, uy float64
			switch {
			case d >= minDistance:
				ux, uy = dx/d, dy/d
			case d > 0:
				// Too close for a stable magnitude; keep the true axis but
				// evaluate the force at the floor distance.
				ux, uy = dx/d, dy/d
				d = minDistance
			default:
				// Exactly coincident pairs have no axis. Separate along x,
				// earlier node pushed left, so the outcome is deterministic.
				ux, uy = 1, 0
				d = minDistance
			}

			f := e.cfg.RepulsionStrength / (d * d) * scale
			a.ApplyImpulse(-ux*f, -uy*f)
			b.ApplyImpulse(ux*f, uy*f)
		}
	}
}

// applySprings pulls each parent-child pair toward the edge's animated rest
// length. While the edge is still growing the spring targets the shorter
// in-flight length, which is what makes children ease outward instead of
// snapping to full distance. Edges with a missing endpoint are skipped.
func (e *Engine) applySprings(tree *aggregates.ScenarioTree) {
	for _, edge := range tree.Edges() {
		parent := tree.FindNode(edge.ParentID())
		child := tree.FindNode(edge.ChildID())
		if parent == nil || child == nil {
			continue
		}

		dx, dy := parent.Position().VectorTo(child.Position())
		d := math.Hypot(dx, dy)
		if d < minDistance {
			continue // no usable axis; repulsion resolves the overlap first
		}

		f := e.cfg.SpringStrength * (d - edge.CurrentLength()) * child.GrowthProgress()
		ux, uy := dx/d, dy/d

		parent.ApplyImpulse(ux*f, uy*f)
		child.ApplyImpulse(-ux*f, -uy*f)
	}
}

// applyAscentBias nudges children upward until they sit ascentMargin above
// their parent. The impulse shrinks to zero at the band edge; nodes past it
// get nothing, so this is a return-to-band bias rather than constant
// gravity.
func (e *Engine) applyAscentBias(tree *aggregates.ScenarioTree, nodes []*entities.Node) {
	g := e.cfg.GravityStrength
	if g == 0 {
		return
	}

	for _, node := range nodes {
		if node.IsRoot() {
			continue
		}
		parent := tree.FindNode(*node.ParentID())
		if parent == nil {
			continue
		}

		// Negative offset means the child is above the parent. Past the
		// margin the child has risen far enough.
		offset := node.Position().Y() - parent.Position().Y()
		if offset <= -ascentMargin {
			continue
		}

		node.ApplyImpulse(0, -(offset+ascentMargin)*g)
	}
}
