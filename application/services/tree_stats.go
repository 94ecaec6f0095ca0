// Package services provides simple, direct computation services used by
// the query layer and diagnostic tooling without command bus overhead.
package services

import (
	"math"

	"go.uber.org/zap"

	"lifetree-backend/application/simulation"
)

// minPairScanLimit bounds the all-pairs distance scan. Beyond this many
// nodes the scan is skipped and MinPairDistance reports -1.
const minPairScanLimit = 2000

// Bounds is the axis-aligned box enclosing every node's rendered extent.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal span of the bounds.
func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the vertical span of the bounds.
func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}

// LayoutStats summarizes the geometric state of one tree snapshot.
type LayoutStats struct {
	NodeCount       int     `json:"node_count"`
	EdgeCount       int     `json:"edge_count"`
	LeafCount       int     `json:"leaf_count"`
	MaxDepth        int     `json:"max_depth"`
	Bounds          Bounds  `json:"bounds"`
	MeanEdgeStretch float64 `json:"mean_edge_stretch"`
	MaxEdgeStretch  float64 `json:"max_edge_stretch"`
	MinPairDistance float64 `json:"min_pair_distance"`
}

// TreeStatsService computes layout statistics from tree snapshots. It is
// used by the stats query and by the tuning check command.
type TreeStatsService struct {
	logger *zap.Logger
}

// NewTreeStatsService creates a new tree stats service
func NewTreeStatsService(logger *zap.Logger) *TreeStatsService {
	return &TreeStatsService{
		logger: logger,
	}
}

// Compute derives layout statistics from a snapshot.
func (s *TreeStatsService) Compute(snapshot *simulation.TreeSnapshot) *LayoutStats {
	stats := &LayoutStats{
		NodeCount:       len(snapshot.Nodes),
		EdgeCount:       len(snapshot.Edges),
		MinPairDistance: -1,
	}
	if len(snapshot.Nodes) == 0 {
		return stats
	}

	// Snapshot nodes are in creation order, so parents precede children
	// and depth resolves in one pass.
	depths := make(map[int]int, len(snapshot.Nodes))
	childCounts := make(map[int]int, len(snapshot.Nodes))
	for _, edge := range snapshot.Edges {
		childCounts[edge.ParentID]++
	}

	bounds := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}

	for _, node := range snapshot.Nodes {
		depth := 1
		if node.ParentID != nil {
			depth = depths[*node.ParentID] + 1
		}
		depths[node.ID] = depth
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		if childCounts[node.ID] == 0 {
			stats.LeafCount++
		}

		halfW := node.Width / 2
		halfH := node.Height / 2
		bounds.MinX = math.Min(bounds.MinX, node.X-halfW)
		bounds.MaxX = math.Max(bounds.MaxX, node.X+halfW)
		bounds.MinY = math.Min(bounds.MinY, node.Y-halfH)
		bounds.MaxY = math.Max(bounds.MaxY, node.Y+halfH)
	}
	stats.Bounds = bounds

	var totalStretch float64
	measured := 0
	for _, edge := range snapshot.Edges {
		if edge.TargetLength <= 0 {
			continue
		}
		stretch := math.Abs(edge.CurrentLength-edge.TargetLength) / edge.TargetLength
		totalStretch += stretch
		if stretch > stats.MaxEdgeStretch {
			stats.MaxEdgeStretch = stretch
		}
		measured++
	}
	if measured > 0 {
		stats.MeanEdgeStretch = totalStretch / float64(measured)
	}

	stats.MinPairDistance = s.minPairDistance(snapshot.Nodes)
	return stats
}

// minPairDistance finds the closest pair of node centers. The scan is
// quadratic and skipped for very large trees.
func (s *TreeStatsService) minPairDistance(nodes []simulation.NodeSnapshot) float64 {
	if len(nodes) < 2 {
		return -1
	}
	if len(nodes) > minPairScanLimit {
		s.logger.Debug("Skipping pair distance scan for large tree",
			zap.Int("nodes", len(nodes)),
		)
		return -1
	}

	min := math.Inf(1)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			d := math.Hypot(nodes[j].X-nodes[i].X, nodes[j].Y-nodes[i].Y)
			if d < min {
				min = d
			}
		}
	}
	return min
}
