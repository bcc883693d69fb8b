package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/dsl"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

func set(t *testing.T, store *variables.Store, name string, v bool) {
	t.Helper()
	_, err := store.SetByName(name, v)
	require.NoError(t, err)
}

func behaviors(tr *tree.Tree, store *variables.Store, ticks int) []string {
	out := make([]string, 0, ticks)
	for i := 0; i < ticks; i++ {
		tr.Evaluate(store)
		out = append(out, tr.Behavior())
	}
	return out
}

func TestPriority_PrefersPreviousBranch(t *testing.T) {
	tmpl := dsl.New("Continuity").
		Variable("a", false).
		Variable("b", true).
		Variable("c", true).
		Root(dsl.Priority("Root",
			dsl.Leaf("A").When("a"),
			dsl.Leaf("B").When("b"),
			dsl.Leaf("C").When("c"),
		)).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	tr.Evaluate(store)
	assert.Equal(t, "B", tr.Behavior())

	set(t, store, "a", true)
	tr.Evaluate(store)
	assert.Equal(t, "B", tr.Behavior(), "active branch still valid")

	set(t, store, "b", false)
	tr.Evaluate(store)
	assert.Equal(t, "A", tr.Behavior(), "falls back to a scan from the top")
}

func TestPriority_ContinuityThroughNestedBranch(t *testing.T) {
	tmpl := dsl.New("Nested").
		Variable("alarm", false).
		Variable("busy", true).
		Root(dsl.Priority("Root",
			dsl.Leaf("Flee").When("alarm"),
			dsl.Priority("Work",
				dsl.Leaf("Dig").When("busy"),
				dsl.Leaf("Rest"),
			),
		)).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	assert.Equal(t, []string{"Dig"}, behaviors(tr, store, 1))

	set(t, store, "alarm", true)
	assert.Equal(t, []string{"Dig"}, behaviors(tr, store, 1))

	// The previous branch stops resolving, so the scan picks the first eligible.
	set(t, store, "busy", false)
	assert.Equal(t, []string{"Rest"}, behaviors(tr, store, 1))
}

func TestPriority_FallbackChaining(t *testing.T) {
	tmpl := dsl.New("Fallback").
		Root(dsl.Priority("Root",
			dsl.Priority("Empty",
				dsl.Leaf("Never").When("0"),
			),
			dsl.Leaf("Backup"),
		)).
		MustBuild()
	tr := tmpl.Instantiate()

	assert.Equal(t, []string{"Backup"}, behaviors(tr, tmpl.NewStore(), 1))
}

func TestPriority_NothingSelectable(t *testing.T) {
	tmpl := dsl.New("None").
		Variable("go", false).
		Root(dsl.Priority("Root", dsl.Leaf("Go").When("go"))).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	set(t, store, "go", true)
	assert.NotEqual(t, domain.InvalidNodeID, tr.Evaluate(store))

	set(t, store, "go", false)
	assert.Equal(t, domain.InvalidNodeID, tr.Evaluate(store))
	assert.Equal(t, domain.InvalidNodeID, tr.Current())
	assert.Equal(t, "", tr.Behavior())
}

func TestSequence_Rotates(t *testing.T) {
	tmpl := dsl.New("Rotation").
		Root(dsl.Sequence("Root", dsl.Leaf("X"), dsl.Leaf("Y"), dsl.Leaf("Z"))).
		MustBuild()
	tr := tmpl.Instantiate()

	assert.Equal(t, []string{"X", "Y", "Z", "X", "Y"}, behaviors(tr, tmpl.NewStore(), 5))
}

func TestSequence_SkipsIneligibleAndKeepsCursorOnFailure(t *testing.T) {
	tmpl := dsl.New("Skip").
		Variable("y", false).
		Variable("any", true).
		Root(dsl.Sequence("Root",
			dsl.Leaf("X").When("any"),
			dsl.Leaf("Y").When("any & y"),
			dsl.Leaf("Z").When("any"),
		)).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	assert.Equal(t, []string{"X", "Z", "X"}, behaviors(tr, store, 3))
	assert.Equal(t, 1, tr.Cursor(domain.RootNodeID))

	set(t, store, "any", false)
	assert.Equal(t, domain.InvalidNodeID, tr.Evaluate(store))
	assert.Equal(t, 1, tr.Cursor(domain.RootNodeID), "cursor unchanged when every child fails")

	set(t, store, "any", true)
	set(t, store, "y", true)
	assert.Equal(t, []string{"Y"}, behaviors(tr, store, 1))
}

func TestStateMachine_SingleStepTransitions(t *testing.T) {
	tmpl := dsl.New("Machine").
		Variable("v", false).
		Root(dsl.StateMachine("Root",
			dsl.State("S0", dsl.Leaf("L0")).To("S1", "v"),
			dsl.State("S1", dsl.Leaf("L1")).To("S2", "v").To("S0", "!v"),
			dsl.State("S2", dsl.Leaf("L2")).To("S0", "!v"),
		)).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	assert.Equal(t, []string{"L0"}, behaviors(tr, store, 1))

	set(t, store, "v", true)
	assert.Equal(t, []string{"L1", "L2", "L2"}, behaviors(tr, store, 3))
	assert.Equal(t, "S2", tr.ActiveState(domain.RootNodeID))

	set(t, store, "v", false)
	assert.Equal(t, []string{"L0", "L0"}, behaviors(tr, store, 2))
}

func TestStateMachine_FailingChildKeepsState(t *testing.T) {
	tmpl := dsl.New("Sticky").
		Variable("go", false).
		Variable("ready", false).
		Root(dsl.StateMachine("Root",
			dsl.State("Idle", dsl.Leaf("Wait")).To("Busy", "go"),
			dsl.State("Busy", dsl.Priority("Work", dsl.Leaf("Do").When("ready"))),
		)).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	set(t, store, "go", true)
	assert.Equal(t, domain.InvalidNodeID, tr.Evaluate(store))
	assert.Equal(t, "Busy", tr.ActiveState(domain.RootNodeID))

	set(t, store, "ready", true)
	assert.Equal(t, []string{"Do"}, behaviors(tr, store, 1))
}

func TestTree_Reset(t *testing.T) {
	tmpl := dsl.New("Rotation").
		Root(dsl.Sequence("Root", dsl.Leaf("X"), dsl.Leaf("Y"))).
		MustBuild()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()

	behaviors(tr, store, 1)
	tr.Reset()
	assert.Equal(t, domain.InvalidNodeID, tr.Current())
	assert.Equal(t, []string{"X"}, behaviors(tr, store, 1))
}

func TestTree_InstancesAreIndependent(t *testing.T) {
	tmpl := dsl.New("Rotation").
		Root(dsl.Sequence("Root", dsl.Leaf("X"), dsl.Leaf("Y"))).
		MustBuild()
	first, second := tmpl.Instantiate(), tmpl.Instantiate()
	store := tmpl.NewStore()

	behaviors(first, store, 1)
	assert.Equal(t, []string{"X"}, behaviors(second, store, 1))
	assert.Equal(t, []string{"Y"}, behaviors(first, store, 1))
}

func TestTree_RestoreReproducesOutputs(t *testing.T) {
	build := func() *tree.Template {
		return dsl.New("Persist").
			Variable("alert", false).
			Root(dsl.Priority("Root",
				dsl.StateMachine("Mode",
					dsl.State("Calm", dsl.Sequence("Patrol", dsl.Leaf("A"), dsl.Leaf("B"), dsl.Leaf("C"))).To("Alarmed", "alert"),
					dsl.State("Alarmed", dsl.Leaf("Search")).To("Calm", "!alert"),
				),
			)).
			MustBuild()
	}
	tmpl := build()
	tr := tmpl.Instantiate()
	store := tmpl.NewStore()
	behaviors(tr, store, 2)

	restoredTmpl := build()
	restored := restoredTmpl.Instantiate()
	restoredStore := restoredTmpl.NewStore()
	restoredStore.Restore(store.Values())
	require.NoError(t, restored.Restore(tr.Current(), tr.Cursors()))

	inputs := []bool{false, false, true, true, false, false}
	for _, alert := range inputs {
		set(t, store, "alert", alert)
		set(t, restoredStore, "alert", alert)
		assert.Equal(t, tr.Evaluate(store), restored.Evaluate(restoredStore))
		assert.Equal(t, tr.Behavior(), restored.Behavior())
	}
}

func TestTree_RestoreRejectsForeignState(t *testing.T) {
	tmpl := dsl.New("Small").
		Root(dsl.Sequence("Root", dsl.Leaf("X"), dsl.Leaf("Y"))).
		MustBuild()
	tr := tmpl.Instantiate()

	assert.ErrorIs(t, tr.Restore(99, nil), domain.ErrSnapshotMismatch)
	assert.ErrorIs(t, tr.Restore(0, []int{0}), domain.ErrSnapshotMismatch)
	assert.ErrorIs(t, tr.Restore(0, []int{5, 0, 0}), domain.ErrSnapshotMismatch)
	require.NoError(t, tr.Restore(2, []int{1, 0, 0}))
	assert.Equal(t, "X", tr.Behavior())
	assert.Equal(t, []string{"Y"}, behaviors(tr, tmpl.NewStore(), 1))
}

func TestTree_Hooks(t *testing.T) {
	tmpl := dsl.New("Hooked").
		Variable("seen", false).
		Signal("OnSeen", "seen", "").
		Root(dsl.Priority("Root", dsl.Leaf("Chase").When("seen"), dsl.Leaf("Idle").When("!seen"))).
		MustBuild()

	var evaluated []*domain.EvaluateEvent
	var signalled []*domain.SignalEvent
	tr := tmpl.Instantiate(tree.WithHooks(domain.LifecycleHooks{
		OnEvaluate: func(e *domain.EvaluateEvent) { evaluated = append(evaluated, e) },
		OnSignal:   func(e *domain.SignalEvent) { signalled = append(signalled, e) },
	}))
	store := tmpl.NewStore()

	tr.Evaluate(store)
	assert.True(t, tr.Signal("OnSeen", store))
	assert.False(t, tr.Signal("OnUnknown", store))
	tr.Evaluate(store)

	require.Len(t, evaluated, 2)
	assert.Equal(t, "Idle", evaluated[0].Behavior)
	assert.Equal(t, "Hooked", evaluated[0].Template)
	assert.Equal(t, evaluated[0].Selected, evaluated[1].Previous)
	assert.Equal(t, "Chase", evaluated[1].Behavior)

	require.Len(t, signalled, 2)
	assert.True(t, signalled[0].Matched)
	assert.Equal(t, "OnUnknown", signalled[1].Signal)
	assert.False(t, signalled[1].Matched)
}
