package simulation

import (
	"time"

	"lifetree-backend/application/ports"
	"lifetree-backend/domain/core/aggregates"
	"lifetree-backend/domain/core/entities"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/events"
)

// Frame is one rendered tick of the layout simulation, shaped for
// streaming to connected clients. Lifecycle notices queued since the
// previous tick ride along with the frame, in occurrence order.
type Frame struct {
	SessionID string        `json:"session_id"`
	Tick      uint64        `json:"tick"`
	Nodes     []NodeFrame   `json:"nodes"`
	Edges     []EdgeFrame   `json:"edges"`
	Events    []EventNotice `json:"events,omitempty"`
}

// EventNotice is the compact wire form of one domain event. Pointer ids
// distinguish the root node from an absent field.
type EventNotice struct {
	Type     string `json:"type"`
	NodeID   *int   `json:"node_id,omitempty"`
	ParentID *int   `json:"parent_id,omitempty"`
	BatchID  string `json:"batch_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NodeFrame carries the per-tick motion state of one node.
type NodeFrame struct {
	ID             int     `json:"id"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	GrowthProgress float64 `json:"growth_progress"`
}

// EdgeFrame carries the per-tick state of one edge.
type EdgeFrame struct {
	ParentID int     `json:"parent_id"`
	ChildID  int     `json:"child_id"`
	Length   float64 `json:"length"`
}

// FrameSink receives frames from a session loop. SendFrame must never
// block; implementations drop the frame and return false when the
// receiver is backed up.
type FrameSink interface {
	SendFrame(frame *Frame) bool
}

// TreeSnapshot is a deep copy of the tree's full state, safe to read
// after the session loop has moved on.
type TreeSnapshot struct {
	SessionID string         `json:"session_id"`
	TreeID    string         `json:"tree_id"`
	Nodes     []NodeSnapshot `json:"nodes"`
	Edges     []EdgeSnapshot `json:"edges"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NodeSnapshot is the full structural and narrative state of one node.
type NodeSnapshot struct {
	ID                 int                    `json:"id"`
	ParentID           *int                   `json:"parent_id,omitempty"`
	Title              string                 `json:"title"`
	ChangeDescription  string                 `json:"change_description"`
	AgeYears           int                    `json:"age_years"`
	AgeWeeks           int                    `json:"age_weeks"`
	Location           string                 `json:"location"`
	RelationshipStatus string                 `json:"relationship_status"`
	LivingSituation    string                 `json:"living_situation"`
	CareerStatus       string                 `json:"career_status"`
	MonthlyIncome      float64                `json:"monthly_income"`
	Appearance         ports.AppearanceRecord `json:"appearance"`
	PortraitHandle     string                 `json:"portrait_handle,omitempty"`
	X                  float64                `json:"x"`
	Y                  float64                `json:"y"`
	Width              float64                `json:"width"`
	Height             float64                `json:"height"`
	GrowthProgress     float64                `json:"growth_progress"`
	Growing            bool                   `json:"growing"`
	Expanded           bool                   `json:"expanded"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// EdgeSnapshot is the structural state of one edge.
type EdgeSnapshot struct {
	ParentID      int     `json:"parent_id"`
	ChildID       int     `json:"child_id"`
	CurrentLength float64 `json:"current_length"`
	TargetLength  float64 `json:"target_length"`
}

// SessionStats summarizes a session's motion and bookkeeping state.
type SessionStats struct {
	SessionID      string    `json:"session_id"`
	NodeCount      int       `json:"node_count"`
	EdgeCount      int       `json:"edge_count"`
	GrowingCount   int       `json:"growing_count"`
	ExpandedCount  int       `json:"expanded_count"`
	PendingBatches int       `json:"pending_batches"`
	MeanSpeed      float64   `json:"mean_speed"`
	MaxSpeed       float64   `json:"max_speed"`
	Tick           uint64    `json:"tick"`
	TreeVersion    int       `json:"tree_version"`
	TreeChecksum   string    `json:"tree_checksum,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// buildFrame renders the tree's motion state into a wire frame.
func buildFrame(sessionID string, tick uint64, tree *aggregates.ScenarioTree) *Frame {
	nodes := tree.Nodes()
	edges := tree.Edges()

	frame := &Frame{
		SessionID: sessionID,
		Tick:      tick,
		Nodes:     make([]NodeFrame, 0, len(nodes)),
		Edges:     make([]EdgeFrame, 0, len(edges)),
	}
	for _, node := range nodes {
		frame.Nodes = append(frame.Nodes, NodeFrame{
			ID:             node.ID().Int(),
			X:              node.Position().X(),
			Y:              node.Position().Y(),
			Width:          node.CurrentSize().Width(),
			Height:         node.CurrentSize().Height(),
			GrowthProgress: node.GrowthProgress(),
		})
	}
	for _, edge := range edges {
		frame.Edges = append(frame.Edges, EdgeFrame{
			ParentID: edge.ParentID().Int(),
			ChildID:  edge.ChildID().Int(),
			Length:   edge.CurrentLength(),
		})
	}
	return frame
}

// buildTreeSnapshot copies the tree's full state into a snapshot DTO.
func buildTreeSnapshot(sessionID string, tree *aggregates.ScenarioTree) *TreeSnapshot {
	nodes := tree.Nodes()
	edges := tree.Edges()

	snap := &TreeSnapshot{
		SessionID: sessionID,
		TreeID:    tree.ID().String(),
		Nodes:     make([]NodeSnapshot, 0, len(nodes)),
		Edges:     make([]EdgeSnapshot, 0, len(edges)),
		UpdatedAt: tree.UpdatedAt(),
	}
	for _, node := range nodes {
		snap.Nodes = append(snap.Nodes, buildNodeSnapshot(node))
	}
	for _, edge := range edges {
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			ParentID:      edge.ParentID().Int(),
			ChildID:       edge.ChildID().Int(),
			CurrentLength: edge.CurrentLength(),
			TargetLength:  edge.TargetLength(),
		})
	}
	return snap
}

// appearanceRecord flattens the appearance value object into wire form.
func appearanceRecord(a valueobjects.Appearance) ports.AppearanceRecord {
	return ports.AppearanceRecord{
		HairColor:     a.HairColor(),
		HairStyle:     a.HairStyle(),
		EyeColor:      a.EyeColor(),
		SkinTone:      a.SkinTone(),
		Build:         a.Build(),
		ClothingStyle: a.ClothingStyle(),
	}
}

// buildNodeSnapshot copies one node's state into a snapshot DTO.
func buildNodeSnapshot(node *entities.Node) NodeSnapshot {
	profile := node.Profile()

	snap := NodeSnapshot{
		ID:                 node.ID().Int(),
		Title:              profile.Title(),
		ChangeDescription:  profile.ChangeDescription(),
		AgeYears:           node.Age().Years(),
		AgeWeeks:           node.Age().Weeks(),
		Location:           profile.Location(),
		RelationshipStatus: profile.RelationshipStatus(),
		LivingSituation:    profile.LivingSituation(),
		CareerStatus:       profile.CareerStatus(),
		MonthlyIncome:      profile.MonthlyIncome(),
		Appearance:         appearanceRecord(node.Appearance()),
		PortraitHandle:     node.Portrait().Handle(),
		X:                  node.Position().X(),
		Y:                  node.Position().Y(),
		Width:              node.CurrentSize().Width(),
		Height:             node.CurrentSize().Height(),
		GrowthProgress:     node.GrowthProgress(),
		Growing:            node.IsGrowing(),
		Expanded:           node.IsExpanded(),
		CreatedAt:          node.CreatedAt(),
		UpdatedAt:          node.UpdatedAt(),
	}
	if pid := node.ParentID(); pid != nil {
		id := pid.Int()
		snap.ParentID = &id
	}
	return snap
}

// noticeFromEvent compresses a domain event into its wire notice.
func noticeFromEvent(event events.DomainEvent) EventNotice {
	notice := EventNotice{Type: event.GetEventType()}
	switch e := event.(type) {
	case events.TreeInitialized:
		notice.NodeID = nodeRef(e.RootID)
		notice.Title = e.RootTitle
	case events.NodeSpawned:
		notice.NodeID = nodeRef(e.NodeID)
		notice.ParentID = nodeRef(e.ParentID)
	case events.NodeRemoved:
		notice.NodeID = nodeRef(e.NodeID)
	case events.NodeScenarioApplied:
		notice.NodeID = nodeRef(e.NodeID)
		notice.Title = e.Title
	case events.NodeEdited:
		notice.NodeID = nodeRef(e.NodeID)
		notice.Title = e.NewTitle
	case events.NodeMoved:
		notice.NodeID = nodeRef(e.NodeID)
	case events.NodePortraitAttached:
		notice.NodeID = nodeRef(e.NodeID)
	case events.ExpansionStarted:
		notice.ParentID = nodeRef(e.ParentID)
		notice.BatchID = e.BatchID
	case events.ExpansionCompleted:
		notice.ParentID = nodeRef(e.ParentID)
		notice.BatchID = e.BatchID
	case events.ExpansionFailed:
		notice.ParentID = nodeRef(e.ParentID)
		notice.BatchID = e.BatchID
		notice.Reason = e.Reason
	}
	return notice
}

func nodeRef(id valueobjects.NodeID) *int {
	v := id.Int()
	return &v
}
