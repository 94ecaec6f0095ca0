package versioning_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/domain/config"
	"lifetree-backend/domain/core/aggregates"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/versioning"
)

func seededTree(t *testing.T) *aggregates.ScenarioTree {
	t.Helper()

	tree := aggregates.NewScenarioTree(config.DefaultDomainConfig(), rand.New(rand.NewSource(11)))
	profile, err := valueobjects.NewScenarioProfile("Now", "", "Austin", "single", "renting", "engineer", 0)
	require.NoError(t, err)
	age, err := valueobjects.NewAge(22, 0)
	require.NoError(t, err)
	_, err = tree.InitializeWithRoot(profile, age, valueobjects.DefaultAppearance())
	require.NoError(t, err)
	return tree
}

func TestVersioningService_CaptureAssignsIncreasingVersions(t *testing.T) {
	svc := versioning.NewVersioningService(versioning.DefaultVersioningPolicy())
	tree := seededTree(t)

	first, err := svc.Capture(tree, versioning.TriggerInitialized, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 1, first.NodeCount)
	assert.Equal(t, 1, first.MaxDepth)
	assert.NotEmpty(t, first.Checksum)

	_, err = tree.SpawnChild(tree.Root().ID(), 120)
	require.NoError(t, err)

	second, err := svc.Capture(tree, versioning.TriggerExpansion, []versioning.Change{
		{Type: versioning.ChangeTypeNodeSpawned, NodeID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 2, second.NodeCount)
	assert.Equal(t, 2, second.MaxDepth)
	assert.NotEqual(t, first.Checksum, second.Checksum)

	assert.Same(t, second, svc.Latest())
	assert.Len(t, svc.History(), 2)
}

func TestVersioningService_ChecksumIgnoresMotion(t *testing.T) {
	svc := versioning.NewVersioningService(versioning.DefaultVersioningPolicy())
	tree := seededTree(t)

	child, err := tree.SpawnChild(tree.Root().ID(), 120)
	require.NoError(t, err)

	before, err := svc.Capture(tree, versioning.TriggerManual, nil)
	require.NoError(t, err)

	// Motion churns every tick; the structural checksum must not.
	pos, err := valueobjects.NewPosition(300, -450)
	require.NoError(t, err)
	require.NoError(t, child.MoveTo(pos))

	after, err := svc.Capture(tree, versioning.TriggerManual, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Checksum, after.Checksum)
}

func TestVersioningService_RetentionDropsOldestFirst(t *testing.T) {
	svc := versioning.NewVersioningService(versioning.VersioningPolicy{
		AutoCapture: true,
		MaxVersions: 3,
	})
	tree := seededTree(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Capture(tree, versioning.TriggerManual, nil)
		require.NoError(t, err)
	}

	history := svc.History()
	require.Len(t, history, 3)
	assert.Equal(t, 3, history[0].Version)
	assert.Equal(t, 5, history[2].Version)
}

func TestVersioningService_ResetKeepsCounter(t *testing.T) {
	svc := versioning.NewVersioningService(versioning.DefaultVersioningPolicy())
	tree := seededTree(t)

	_, err := svc.Capture(tree, versioning.TriggerInitialized, nil)
	require.NoError(t, err)
	_, err = svc.Capture(tree, versioning.TriggerExpansion, nil)
	require.NoError(t, err)

	svc.Reset()
	assert.Nil(t, svc.Latest())
	assert.Empty(t, svc.History())

	next, err := svc.Capture(tree, versioning.TriggerReset, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, next.Version, "versions after a reset must stay distinguishable")
}

func TestVersioningService_CaptureRejectsNilTree(t *testing.T) {
	svc := versioning.NewVersioningService(versioning.DefaultVersioningPolicy())
	_, err := svc.Capture(nil, versioning.TriggerManual, nil)
	assert.Error(t, err)
}

func TestVersioningPolicy_ShouldCapture(t *testing.T) {
	policy := versioning.VersioningPolicy{AutoCapture: true, CaptureOnNodeCount: 3}

	assert.True(t, policy.ShouldCapture(nil, 1), "first capture is always due")
	last := &versioning.TreeVersion{NodeCount: 4}
	assert.False(t, policy.ShouldCapture(last, 5))
	assert.True(t, policy.ShouldCapture(last, 7))
	assert.True(t, policy.ShouldCapture(last, 1), "shrinking counts as change too")

	policy.AutoCapture = false
	assert.False(t, policy.ShouldCapture(nil, 10))
}

func TestCompareVersions(t *testing.T) {
	from := &versioning.TreeVersion{Version: 1, Checksum: "a"}
	to := &versioning.TreeVersion{
		Version:  2,
		Checksum: "b",
		Changes: []versioning.Change{
			{Type: versioning.ChangeTypeNodeSpawned},
			{Type: versioning.ChangeTypeNodeSpawned},
			{Type: versioning.ChangeTypeNodeRemoved},
			{Type: versioning.ChangeTypeScenarioApplied},
		},
	}

	diff, err := versioning.CompareVersions(from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, diff.NodesAdded)
	assert.Equal(t, 1, diff.NodesRemoved)
	assert.Equal(t, 1, diff.NodesRewritten)
	assert.False(t, diff.StructureSame)

	_, err = versioning.CompareVersions(nil, to)
	assert.Error(t, err)
}
