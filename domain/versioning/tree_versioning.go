// Package versioning captures lightweight, checksummed snapshots of a
// scenario tree's structure so sessions can report and compare revisions.
package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lifetree-backend/domain/core/aggregates"
)

// TreeVersion represents a specific revision of a scenario tree
type TreeVersion struct {
	TreeID    string    `json:"tree_id"`
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	MaxDepth  int       `json:"max_depth"`
	Trigger   Trigger   `json:"trigger"`
	CreatedAt time.Time `json:"created_at"`
	Changes   []Change  `json:"changes,omitempty"`
}

// Trigger identifies what caused a version to be captured
type Trigger string

const (
	TriggerInitialized Trigger = "initialized"
	TriggerExpansion   Trigger = "expansion"
	TriggerReset       Trigger = "reset"
	TriggerManual      Trigger = "manual"
)

// Change records one structural mutation covered by a version
type Change struct {
	Type        ChangeType `json:"type"`
	NodeID      int        `json:"node_id"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ChangeType represents the type of change
type ChangeType string

const (
	ChangeTypeNodeSpawned     ChangeType = "node_spawned"
	ChangeTypeNodeRemoved     ChangeType = "node_removed"
	ChangeTypeScenarioApplied ChangeType = "scenario_applied"
	ChangeTypeNodeEdited      ChangeType = "node_edited"
	ChangeTypeTreeReset       ChangeType = "tree_reset"
)

// VersioningPolicy defines when versions are captured and how many are kept
type VersioningPolicy struct {
	AutoCapture        bool `json:"auto_capture"`
	MaxVersions        int  `json:"max_versions"`
	CaptureOnNodeCount int  `json:"capture_on_node_count"`
}

// DefaultVersioningPolicy returns the default versioning policy
func DefaultVersioningPolicy() VersioningPolicy {
	return VersioningPolicy{
		AutoCapture:        true,
		MaxVersions:        50,
		CaptureOnNodeCount: 1,
	}
}

// ShouldCapture reports whether a new version is due given the node count
// delta since the last captured version.
func (p VersioningPolicy) ShouldCapture(last *TreeVersion, currentNodeCount int) bool {
	if !p.AutoCapture {
		return false
	}
	if last == nil {
		return true
	}
	delta := currentNodeCount - last.NodeCount
	if delta < 0 {
		delta = -delta
	}
	return delta >= p.CaptureOnNodeCount
}

// VersioningService captures and retains tree versions for one session.
// It is not safe for concurrent use; the owning session confines it to
// its loop.
type VersioningService struct {
	policy  VersioningPolicy
	history []*TreeVersion
	counter int
}

// NewVersioningService creates a new versioning service
func NewVersioningService(policy VersioningPolicy) *VersioningService {
	if policy.MaxVersions <= 0 {
		policy.MaxVersions = DefaultVersioningPolicy().MaxVersions
	}
	return &VersioningService{
		policy:  policy,
		history: make([]*TreeVersion, 0, 8),
	}
}

// Policy returns the active versioning policy.
func (s *VersioningService) Policy() VersioningPolicy {
	return s.policy
}

// Capture records a new version of the tree. Old versions beyond the
// policy's retention limit are dropped, oldest first.
func (s *VersioningService) Capture(tree *aggregates.ScenarioTree, trigger Trigger, changes []Change) (*TreeVersion, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree cannot be nil")
	}

	checksum, err := calculateChecksum(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	s.counter++
	version := &TreeVersion{
		TreeID:    tree.ID().String(),
		Version:   s.counter,
		Checksum:  checksum,
		NodeCount: tree.NodeCount(),
		EdgeCount: tree.EdgeCount(),
		MaxDepth:  maxDepth(tree),
		Trigger:   trigger,
		CreatedAt: time.Now(),
		Changes:   changes,
	}

	s.history = append(s.history, version)
	if len(s.history) > s.policy.MaxVersions {
		s.history = s.history[len(s.history)-s.policy.MaxVersions:]
	}
	return version, nil
}

// Latest returns the most recently captured version, or nil if none exists.
func (s *VersioningService) Latest() *TreeVersion {
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// History returns the retained versions, oldest first.
func (s *VersioningService) History() []*TreeVersion {
	out := make([]*TreeVersion, len(s.history))
	copy(out, s.history)
	return out
}

// Reset discards all captured versions but keeps the version counter, so
// revisions after a tree reset remain distinguishable from those before.
func (s *VersioningService) Reset() {
	s.history = s.history[:0]
}

// CompareVersions compares two tree versions
func CompareVersions(v1, v2 *TreeVersion) (*VersionDiff, error) {
	if v1 == nil || v2 == nil {
		return nil, fmt.Errorf("versions cannot be nil")
	}

	diff := &VersionDiff{
		FromVersion:    v1.Version,
		ToVersion:      v2.Version,
		NodesAdded:     0,
		NodesRemoved:   0,
		NodesRewritten: 0,
		StructureSame:  v1.Checksum == v2.Checksum,
		TimeDiff:       v2.CreatedAt.Sub(v1.CreatedAt),
	}

	for _, change := range v2.Changes {
		switch change.Type {
		case ChangeTypeNodeSpawned:
			diff.NodesAdded++
		case ChangeTypeNodeRemoved:
			diff.NodesRemoved++
		case ChangeTypeScenarioApplied, ChangeTypeNodeEdited:
			diff.NodesRewritten++
		}
	}
	return diff, nil
}

// VersionDiff represents the difference between two versions
type VersionDiff struct {
	FromVersion    int           `json:"from_version"`
	ToVersion      int           `json:"to_version"`
	NodesAdded     int           `json:"nodes_added"`
	NodesRemoved   int           `json:"nodes_removed"`
	NodesRewritten int           `json:"nodes_rewritten"`
	StructureSame  bool          `json:"structure_same"`
	TimeDiff       time.Duration `json:"time_diff"`
}

// nodeDigest is the per-node slice of the checksum input. It covers
// identity, lineage and narrative content only; positions churn every
// simulation tick and stay out of the checksum.
type nodeDigest struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_id"`
	Title    string `json:"title"`
	AgeYears int    `json:"age_years"`
	AgeWeeks int    `json:"age_weeks"`
	Expanded bool   `json:"expanded"`
}

// calculateChecksum hashes a deterministic projection of the tree.
func calculateChecksum(tree *aggregates.ScenarioTree) (string, error) {
	nodes := tree.Nodes()
	digests := make([]nodeDigest, 0, len(nodes))
	for _, node := range nodes {
		d := nodeDigest{
			ID:       node.ID().Int(),
			ParentID: -1,
			Title:    node.Profile().Title(),
			AgeYears: node.Age().Years(),
			AgeWeeks: node.Age().Weeks(),
			Expanded: node.IsExpanded(),
		}
		if pid := node.ParentID(); pid != nil {
			d.ParentID = pid.Int()
		}
		digests = append(digests, d)
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i].ID < digests[j].ID })

	data := struct {
		TreeID    string       `json:"tree_id"`
		Nodes     []nodeDigest `json:"nodes"`
		EdgeCount int          `json:"edge_count"`
	}{
		TreeID:    tree.ID().String(),
		Nodes:     digests,
		EdgeCount: tree.EdgeCount(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// maxDepth returns the longest root-to-leaf chain, counting the root as
// depth one. Nodes are stored in creation order, so every parent is
// visited before its children.
func maxDepth(tree *aggregates.ScenarioTree) int {
	depths := make(map[int]int, tree.NodeCount())
	deepest := 0
	for _, node := range tree.Nodes() {
		depth := 1
		if pid := node.ParentID(); pid != nil {
			depth = depths[pid.Int()] + 1
		}
		depths[node.ID().Int()] = depth
		if depth > deepest {
			deepest = depth
		}
	}
	return deepest
}
