package aggregates

import (
	"time"

	"math/rand"

	"github.com/google/uuid"

	"lifetree-backend/domain/config"
	"lifetree-backend/domain/core/entities"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/events"
	pkgerrors "lifetree-backend/pkg/errors"
)

// TreeID represents a unique tree identifier
type TreeID string

// NewTreeID creates a new random TreeID
func NewTreeID() TreeID {
	return TreeID(uuid.New().String())
}

// String returns the string representation
func (id TreeID) String() string {
	return string(id)
}

// Horizontal jitter applied to a child's seed position so siblings do not
// stack on one vertical line.
const spawnJitter = 20.0

// ScenarioTree is the aggregate root for one session's scenario tree.
// It owns the insertion-ordered node and edge collections, allocates node
// ids, and is the only place nodes and edges are attached or detached.
// Node ids come from a counter that never decrements, so an id freed by an
// expansion rollback is never handed out again.
type ScenarioTree struct {
	id          TreeID
	cfg         *config.DomainConfig
	rng         *rand.Rand
	nodes       []*entities.Node
	nodeIndex   map[int]*entities.Node
	edges       []*entities.Edge
	edgeByChild map[int]*entities.Edge
	children    map[int][]valueobjects.NodeID
	initialized bool
	nextID      int
	createdAt   time.Time
	updatedAt   time.Time
	version     int
	events      []events.DomainEvent
}

// NewScenarioTree creates an empty, uninitialized tree. The random source
// seeds child spawn positions; tests inject a fixed seed for reproducible
// layouts.
func NewScenarioTree(cfg *config.DomainConfig, rng *rand.Rand) *ScenarioTree {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	now := time.Now()
	return &ScenarioTree{
		id:          NewTreeID(),
		cfg:         cfg,
		rng:         rng,
		nodes:       []*entities.Node{},
		nodeIndex:   make(map[int]*entities.Node),
		edges:       []*entities.Edge{},
		edgeByChild: make(map[int]*entities.Edge),
		children:    make(map[int][]valueobjects.NodeID),
		initialized: false,
		nextID:      0,
		createdAt:   now,
		updatedAt:   now,
		version:     1,
		events:      []events.DomainEvent{},
	}
}

// ID returns the tree's unique identifier
func (t *ScenarioTree) ID() TreeID {
	return t.id
}

// IsInitialized reports whether the tree has been seeded with a root
func (t *ScenarioTree) IsInitialized() bool {
	return t.initialized
}

// NodeCount returns the number of nodes in the tree
func (t *ScenarioTree) NodeCount() int {
	return len(t.nodes)
}

// EdgeCount returns the number of edges in the tree
func (t *ScenarioTree) EdgeCount() int {
	return len(t.edges)
}

// CreatedAt returns when the tree was created
func (t *ScenarioTree) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns when the tree was last changed structurally
func (t *ScenarioTree) UpdatedAt() time.Time {
	return t.updatedAt
}

// InitializeWithRoot seeds the tree with its fully grown root node. The
// initialized latch makes a second seeding of the same instance an error.
func (t *ScenarioTree) InitializeWithRoot(
	profile valueobjects.ScenarioProfile,
	age valueobjects.Age,
	appearance valueobjects.Appearance,
) (*entities.Node, error) {
	if t.initialized {
		return nil, pkgerrors.ErrTreeAlreadyInitialized
	}

	size, err := valueobjects.NewDimensions(t.cfg.NodeWidth, t.cfg.NodeHeight)
	if err != nil {
		return nil, err
	}

	root, err := entities.NewRootNode(t.allocateID(), t.id.String(), profile, age, appearance, size)
	if err != nil {
		return nil, err
	}

	t.attachNode(root)
	t.initialized = true
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTreeInitialized(t.id.String(), root.ID(), profile.Title(), t.updatedAt))

	return root, nil
}

// SpawnChild creates a placeholder child under the given parent together
// with its inbound edge, atomically: either both are attached or neither.
// The child seeds near the parent, offset upward by restLength with a small
// random horizontal jitter, so growth radiates outward instead of snapping
// into place. restLength is the spring rest length configured at this
// moment; it becomes the edge's fixed target length.
func (t *ScenarioTree) SpawnChild(parentID valueobjects.NodeID, restLength float64) (*entities.Node, error) {
	if !t.initialized {
		return nil, pkgerrors.ErrTreeNotInitialized
	}

	parent := t.FindNode(parentID)
	if parent == nil {
		return nil, pkgerrors.ErrParentNotFound
	}

	if len(t.nodes) >= t.cfg.MaxNodesPerTree {
		return nil, pkgerrors.ErrTreeNodeLimitExceeded
	}

	size, err := valueobjects.NewDimensions(t.cfg.NodeWidth, t.cfg.NodeHeight)
	if err != nil {
		return nil, err
	}

	jitter := (t.rng.Float64()*2 - 1) * spawnJitter
	seed := parent.Position().Translate(jitter, -restLength)

	id := t.allocateID()
	node, err := entities.NewChildNode(
		id,
		t.id.String(),
		parentID,
		seed,
		parent.Profile(),
		parent.Age(),
		parent.Appearance(),
		size,
	)
	if err != nil {
		return nil, err
	}

	edge, err := entities.NewEdge(parentID, id, restLength)
	if err != nil {
		return nil, err
	}

	t.attachNode(node)
	t.attachEdge(edge)
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewNodeSpawned(t.id.String(), id, parentID, t.updatedAt))

	return node, nil
}

// FindNode retrieves a node by id. A missing node yields nil, never an
// error: callers in the force loop treat absence as a pair to skip.
func (t *ScenarioTree) FindNode(id valueobjects.NodeID) *entities.Node {
	return t.nodeIndex[id.Int()]
}

// Root returns the tree's root node, or nil before initialization.
func (t *ScenarioTree) Root() *entities.Node {
	if len(t.nodes) == 0 {
		return nil
	}
	return t.nodes[0]
}

// Children returns a node's children in edge-insertion order.
func (t *ScenarioTree) Children(id valueobjects.NodeID) []*entities.Node {
	ids := t.children[id.Int()]
	out := make([]*entities.Node, 0, len(ids))
	for _, cid := range ids {
		if child := t.nodeIndex[cid.Int()]; child != nil {
			out = append(out, child)
		}
	}
	return out
}

// IsLeaf reports whether a node has no children.
func (t *ScenarioTree) IsLeaf(id valueobjects.NodeID) bool {
	return len(t.children[id.Int()]) == 0
}

// AncestorChain walks parent links from the given node to the root and
// returns the chain root-first, ending with the node itself. The walk is
// bounded by the node count so a corrupted parent link cannot loop forever.
func (t *ScenarioTree) AncestorChain(id valueobjects.NodeID) ([]*entities.Node, error) {
	node := t.FindNode(id)
	if node == nil {
		return nil, pkgerrors.ErrNodeNotFound
	}

	chain := []*entities.Node{node}
	hops := 0
	for !node.IsRoot() {
		hops++
		if hops > len(t.nodes) {
			return nil, pkgerrors.NewInternalError("ancestor walk exceeded node count, parent links form a cycle")
		}

		parent := t.FindNode(*node.ParentID())
		if parent == nil {
			break // orphaned subtree, return what resolved
		}
		chain = append(chain, parent)
		node = parent
	}

	// Reverse in place so the root comes first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain, nil
}

// RemoveNode detaches a leaf node and its inbound edge. It exists only for
// expansion rollback; removing a node that has children would orphan them
// and is rejected.
func (t *ScenarioTree) RemoveNode(id valueobjects.NodeID) error {
	node := t.FindNode(id)
	if node == nil {
		return pkgerrors.ErrNodeNotFound
	}
	if len(t.children[id.Int()]) > 0 {
		return pkgerrors.NewValidationError("cannot remove a node that has children")
	}
	if node.IsRoot() {
		return pkgerrors.NewValidationError("cannot remove the root node")
	}

	raw := id.Int()

	for i, n := range t.nodes {
		if n.ID().Equals(id) {
			t.nodes = append(t.nodes[:i], t.nodes[i+1:]...)
			break
		}
	}
	delete(t.nodeIndex, raw)
	delete(t.children, raw)

	if edge := t.edgeByChild[raw]; edge != nil {
		for i, e := range t.edges {
			if e == edge {
				t.edges = append(t.edges[:i], t.edges[i+1:]...)
				break
			}
		}
		delete(t.edgeByChild, raw)
	}

	parentID := node.ParentID()
	if parentID != nil {
		siblings := t.children[parentID.Int()]
		for i, sid := range siblings {
			if sid.Equals(id) {
				t.children[parentID.Int()] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}

	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewNodeRemoved(t.id.String(), id, t.updatedAt))

	return nil
}

// Nodes returns the nodes in insertion order. The slice is a copy; the
// entities are shared, which is what the engine mutates.
func (t *ScenarioTree) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, len(t.nodes))
	copy(nodes, t.nodes)
	return nodes
}

// Edges returns the edges in insertion order. The slice is a copy.
func (t *ScenarioTree) Edges() []*entities.Edge {
	edges := make([]*entities.Edge, len(t.edges))
	copy(edges, t.edges)
	return edges
}

// EdgeToChild returns the inbound edge of the given child, or nil.
func (t *ScenarioTree) EdgeToChild(childID valueobjects.NodeID) *entities.Edge {
	return t.edgeByChild[childID.Int()]
}

// Validate ensures the structural invariants hold
func (t *ScenarioTree) Validate() error {
	if len(t.nodes) != len(t.nodeIndex) {
		return pkgerrors.NewInternalError("node index out of sync with node list")
	}

	roots := 0
	for _, node := range t.nodes {
		if node.IsRoot() {
			roots++
			continue
		}
		if t.nodeIndex[node.ParentID().Int()] == nil {
			return pkgerrors.NewInternalError("node references a missing parent")
		}
		if t.edgeByChild[node.ID().Int()] == nil {
			return pkgerrors.NewInternalError("non-root node has no inbound edge")
		}
	}
	if t.initialized && roots != 1 {
		return pkgerrors.NewInternalError("initialized tree must have exactly one root")
	}

	for _, edge := range t.edges {
		if t.nodeIndex[edge.ParentID().Int()] == nil || t.nodeIndex[edge.ChildID().Int()] == nil {
			return pkgerrors.NewInternalError("edge references a missing node")
		}
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (t *ScenarioTree) GetUncommittedEvents() []events.DomainEvent {
	// Collect events from the tree itself
	allEvents := make([]events.DomainEvent, len(t.events))
	copy(allEvents, t.events)

	// Collect events from all nodes, in insertion order
	for _, node := range t.nodes {
		allEvents = append(allEvents, node.GetUncommittedEvents()...)
	}

	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (t *ScenarioTree) MarkEventsAsCommitted() {
	t.events = []events.DomainEvent{}

	for _, node := range t.nodes {
		node.MarkEventsAsCommitted()
	}
}

// Private helper methods

func (t *ScenarioTree) allocateID() valueobjects.NodeID {
	id, _ := valueobjects.NewNodeID(t.nextID) // counter is never negative
	t.nextID++
	return id
}

func (t *ScenarioTree) attachNode(node *entities.Node) {
	t.nodes = append(t.nodes, node)
	t.nodeIndex[node.ID().Int()] = node
}

func (t *ScenarioTree) attachEdge(edge *entities.Edge) {
	t.edges = append(t.edges, edge)
	t.edgeByChild[edge.ChildID().Int()] = edge
	parentKey := edge.ParentID().Int()
	t.children[parentKey] = append(t.children[parentKey], edge.ChildID())
}

func (t *ScenarioTree) addEvent(event events.DomainEvent) {
	t.events = append(t.events, event)
}
