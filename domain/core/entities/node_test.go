package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/domain/core/entities"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/events"
	pkgerrors "lifetree-backend/pkg/errors"
)

func testProfile(t *testing.T, title string) valueobjects.ScenarioProfile {
	t.Helper()

	profile, err := valueobjects.NewScenarioProfile(
		title, "moved out", "Hamburg", "single", "studio", "barista", 1400,
	)
	require.NoError(t, err)
	return profile
}

func testAge(t *testing.T, years, weeks int) valueobjects.Age {
	t.Helper()

	age, err := valueobjects.NewAge(years, weeks)
	require.NoError(t, err)
	return age
}

func testSize(t *testing.T) valueobjects.Dimensions {
	t.Helper()

	size, err := valueobjects.NewDimensions(160, 120)
	require.NoError(t, err)
	return size
}

func newRoot(t *testing.T) *entities.Node {
	t.Helper()

	id, err := valueobjects.NewNodeID(0)
	require.NoError(t, err)
	root, err := entities.NewRootNode(id, "tree-1", testProfile(t, "Now"), testAge(t, 22, 0),
		valueobjects.DefaultAppearance(), testSize(t))
	require.NoError(t, err)
	return root
}

func newChild(t *testing.T) *entities.Node {
	t.Helper()

	id, err := valueobjects.NewNodeID(1)
	require.NoError(t, err)
	parentID, err := valueobjects.NewNodeID(0)
	require.NoError(t, err)
	seed, err := valueobjects.NewPosition(12, -120)
	require.NoError(t, err)

	child, err := entities.NewChildNode(id, "tree-1", parentID, seed,
		testProfile(t, "Now"), testAge(t, 22, 0), valueobjects.DefaultAppearance(), testSize(t))
	require.NoError(t, err)
	return child
}

func TestNode_RootSpawnsFullyGrown(t *testing.T) {
	root := newRoot(t)

	assert.True(t, root.IsRoot())
	assert.Nil(t, root.ParentID())
	assert.True(t, root.Position().IsOrigin())
	assert.Equal(t, 1.0, root.GrowthProgress())
	assert.False(t, root.IsGrowing())
	assert.Equal(t, root.TargetSize(), root.CurrentSize())
	assert.False(t, root.IsExpanded())
}

func TestNode_ChildSpawnsAsPlaceholder(t *testing.T) {
	child := newChild(t)

	assert.False(t, child.IsRoot())
	require.NotNil(t, child.ParentID())
	assert.Equal(t, 0, child.ParentID().Int())
	assert.Zero(t, child.GrowthProgress())
	assert.True(t, child.IsGrowing())
	assert.True(t, child.CurrentSize().IsZero())
	assert.Equal(t, "Now", child.Profile().Title())
}

func TestNode_AdvanceGrowthIsMonotonicAndStopsPermanently(t *testing.T) {
	child := newChild(t)

	child.AdvanceGrowth(1.25, 2.5)
	assert.InDelta(t, 0.5, child.GrowthProgress(), 1e-12)
	assert.InDelta(t, 80, child.CurrentSize().Width(), 1e-9)
	assert.True(t, child.IsGrowing())

	// Negative elapsed time never rewinds the animation.
	child.AdvanceGrowth(-5, 2.5)
	assert.InDelta(t, 0.5, child.GrowthProgress(), 1e-12)

	child.AdvanceGrowth(10, 2.5)
	assert.Equal(t, 1.0, child.GrowthProgress())
	assert.False(t, child.IsGrowing())
	assert.Equal(t, child.TargetSize().Width(), child.CurrentSize().Width())
	assert.Equal(t, child.TargetSize().Height(), child.CurrentSize().Height())

	// A finished node never regrows.
	child.AdvanceGrowth(10, 2.5)
	assert.Equal(t, 1.0, child.GrowthProgress())
	assert.False(t, child.IsGrowing())
}

func TestNode_MarkExpandedGatesReExpansion(t *testing.T) {
	root := newRoot(t)

	require.NoError(t, root.MarkExpanded())
	assert.True(t, root.IsExpanded())

	err := root.MarkExpanded()
	assert.ErrorIs(t, err, pkgerrors.ErrNodeAlreadyExpanded)

	// Rollback restores the gate so the user may retry.
	root.RevertExpansion()
	assert.False(t, root.IsExpanded())
	assert.NoError(t, root.MarkExpanded())
}

func TestNode_MoveToCancelsMotionAndRecordsEvent(t *testing.T) {
	child := newChild(t)
	child.ApplyImpulse(3, -4)
	require.False(t, child.Velocity().IsZero())

	target, err := valueobjects.NewPosition(200, -300)
	require.NoError(t, err)
	require.NoError(t, child.MoveTo(target))

	assert.True(t, child.Position().Equals(target))
	assert.True(t, child.Velocity().IsZero())

	recorded := child.GetUncommittedEvents()
	require.Len(t, recorded, 1)
	moved, ok := recorded[0].(events.NodeMoved)
	require.True(t, ok)
	assert.Equal(t, "node.moved", moved.GetEventType())

	// Moving to the current position is a no-op.
	child.MarkEventsAsCommitted()
	require.NoError(t, child.MoveTo(target))
	assert.Empty(t, child.GetUncommittedEvents())
}

func TestNode_IntegrateAppliesFrictionAndSpeedCap(t *testing.T) {
	child := newChild(t)
	child.ApplyImpulse(100, 0)

	child.Integrate(0.85, 8)

	assert.InDelta(t, 8, child.Velocity().Speed(), 1e-9)
	assert.InDelta(t, 12+8, child.Position().X(), 1e-9)

	// Below the cap only friction applies.
	quiet := newChild(t)
	quiet.ApplyImpulse(2, 0)
	quiet.Integrate(0.5, 8)
	assert.InDelta(t, 1, quiet.Velocity().DX(), 1e-12)
}

func TestNode_ApplyScenarioOverwritesInterimContent(t *testing.T) {
	child := newChild(t)
	versionBefore := child.Version()

	next := testProfile(t, "Move to Lisbon")
	require.NoError(t, child.ApplyScenario(next, testAge(t, 23, 10), valueobjects.DefaultAppearance()))

	assert.Equal(t, "Move to Lisbon", child.Profile().Title())
	assert.Equal(t, 23, child.Age().Years())
	assert.Equal(t, versionBefore+1, child.Version())

	recorded := child.GetUncommittedEvents()
	require.Len(t, recorded, 1)
	applied, ok := recorded[0].(events.NodeScenarioApplied)
	require.True(t, ok)
	assert.Equal(t, "Move to Lisbon", applied.Title)
}

func TestNode_EditProfileIgnoresNoOpEdits(t *testing.T) {
	child := newChild(t)

	require.NoError(t, child.EditProfile(child.Profile()))
	assert.Empty(t, child.GetUncommittedEvents())

	edited := testProfile(t, "Stay put")
	require.NoError(t, child.EditProfile(edited))

	recorded := child.GetUncommittedEvents()
	require.Len(t, recorded, 1)
	event, ok := recorded[0].(events.NodeEdited)
	require.True(t, ok)
	assert.Equal(t, "Now", event.OldTitle)
	assert.Equal(t, "Stay put", event.NewTitle)
}

func TestNode_SetPortraitRejectsEmptyHandle(t *testing.T) {
	child := newChild(t)

	assert.Error(t, child.SetPortrait(valueobjects.PortraitRef{}))

	ref, err := valueobjects.NewPortraitRef("img-abc123")
	require.NoError(t, err)
	require.NoError(t, child.SetPortrait(ref))
	assert.Equal(t, "img-abc123", child.Portrait().Handle())
}
