package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/dsl"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

func TestNewTemplate_Validation(t *testing.T) {
	leaf := func(name string, parent domain.NodeID) tree.Node {
		return tree.Node{Name: name, Parent: parent, Kind: domain.KindLeaf}
	}

	tests := []struct {
		name   string
		nodes  []tree.Node
		detail string
	}{
		{"no nodes", nil, "no root node"},
		{
			"leaf with children",
			[]tree.Node{{Name: "L", Kind: domain.KindLeaf, Children: []tree.Child{{ID: 2}}}, leaf("X", 1)},
			"leaf has children",
		},
		{
			"priority without children",
			[]tree.Node{{Name: "P", Kind: domain.KindPriority}},
			"has no children",
		},
		{
			"child out of range",
			[]tree.Node{{Name: "P", Kind: domain.KindPriority, Children: []tree.Child{{ID: 7}}}},
			"out of range",
		},
		{
			"wrong parent",
			[]tree.Node{
				{Name: "P", Kind: domain.KindPriority, Children: []tree.Child{{ID: 2}, {ID: 3}}},
				leaf("A", 1),
				leaf("B", 2),
			},
			"expected 1",
		},
		{
			"orphan",
			[]tree.Node{
				{Name: "P", Kind: domain.KindPriority, Children: []tree.Child{{ID: 2}}},
				leaf("A", 1),
				leaf("B", 1),
			},
			"referenced by 0 parents",
		},
		{
			"state machine without states",
			[]tree.Node{{Name: "M", Kind: domain.KindStateMachine}},
			"no states",
		},
		{
			"transition out of range",
			[]tree.Node{
				{Name: "M", Kind: domain.KindStateMachine, States: []tree.State{
					{Name: "S", Child: 2, Transitions: []tree.Transition{{Target: 3}}},
				}},
				leaf("A", 1),
			},
			"unknown state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.NewTemplate(tree.Definition{Name: "T", File: "t.xml", Nodes: tt.nodes})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedNode)
			assert.Contains(t, err.Error(), tt.detail)
			assert.Contains(t, err.Error(), "t.xml")
		})
	}
}

func TestNewTemplate_ChildLimit(t *testing.T) {
	nodes := []tree.Node{{Name: "P", Kind: domain.KindSequence}}
	for i := 0; i < tree.MaxChildren+1; i++ {
		nodes[0].Children = append(nodes[0].Children, tree.Child{ID: domain.NodeIDFromIndex(len(nodes))})
		nodes = append(nodes, tree.Node{Name: "L", Parent: 1, Kind: domain.KindLeaf})
	}

	_, err := tree.NewTemplate(tree.Definition{Name: "Wide", Nodes: nodes})
	require.ErrorIs(t, err, domain.ErrMalformedNode)
	assert.Contains(t, err.Error(), "exceed the limit")

	_, err = tree.NewTemplate(tree.Definition{Name: "Wide", Nodes: nodes[:tree.MaxChildren+1]})
	assert.Error(t, err, "children beyond the slice are out of range")

	nodes[0].Children = nodes[0].Children[:tree.MaxChildren]
	_, err = tree.NewTemplate(tree.Definition{Name: "Wide", Nodes: nodes[:tree.MaxChildren+1]})
	assert.NoError(t, err)
}

func TestTemplate_Accessors(t *testing.T) {
	tmpl := dsl.New("Soldier").
		Type("Human").
		Variable("HasTarget", false).
		Root(dsl.Priority("Root",
			dsl.Leaf("Shoot").When("HasTarget"),
			dsl.Priority("Combat", dsl.Leaf("Reload")),
		)).
		MustBuild()

	assert.Equal(t, "Soldier", tmpl.Name())
	assert.Equal(t, "Human", tmpl.Type())
	assert.Equal(t, 4, tmpl.Len())
	assert.Equal(t, "Root:Combat:Reload", tmpl.Path(4))
	assert.True(t, tmpl.IsDescendant(4, 1))
	assert.True(t, tmpl.IsAncestor(3, 4))
	assert.False(t, tmpl.IsDescendant(2, 3))
	assert.False(t, tmpl.IsDescendant(1, 1))

	shoot, ok := tmpl.Node(2)
	require.True(t, ok)
	assert.Equal(t, "Shoot", shoot.Name)
	assert.Equal(t, 1, shoot.Condition.Len())

	_, ok = tmpl.Node(0)
	assert.False(t, ok)
}

func TestNameTranslator(t *testing.T) {
	// Root(1) -> Combat(2) -> Shoot(3); Root -> Patrol(4) -> Shoot(5); Root -> Idle(6)
	nodes := []tree.Node{
		{Name: "Root", Kind: domain.KindPriority, Children: []tree.Child{{ID: 2}, {ID: 4}, {ID: 6}}},
		{Name: "Combat", Parent: 1, Kind: domain.KindPriority, Children: []tree.Child{{ID: 3}}},
		{Name: "Shoot", Parent: 2, Kind: domain.KindLeaf},
		{Name: "Patrol", Parent: 1, Kind: domain.KindSequence, Children: []tree.Child{{ID: 5}}},
		{Name: "Shoot", Parent: 4, Kind: domain.KindLeaf},
		{Name: "Idle", Parent: 1, Kind: domain.KindLeaf},
	}

	t.Run("most specific wins", func(t *testing.T) {
		tr, errs := tree.NewNameTranslator(nodes, []tree.Translation{
			{Source: "Shoot", Target: "GenericShoot"},
			{Source: "Root:Combat:Shoot", Target: "AimedShot"},
			{Source: "Idle", Target: "Stand"},
		})
		require.Empty(t, errs)

		name, ok := tr.Translate(3)
		assert.True(t, ok)
		assert.Equal(t, "AimedShot", name)

		name, _ = tr.Translate(5)
		assert.Equal(t, "GenericShoot", name)

		name, _ = tr.Translate(6)
		assert.Equal(t, "Stand", name)

		_, ok = tr.Translate(2)
		assert.False(t, ok)
		assert.Equal(t, 3, tr.Len())
	})

	t.Run("ancestors may be skipped", func(t *testing.T) {
		tr, errs := tree.NewNameTranslator(nodes, []tree.Translation{{Source: "Root:Shoot", Target: "S"}})
		require.Empty(t, errs)
		assert.Len(t, tr.Entries(), 2)
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, errs := tree.NewNameTranslator(nodes, []tree.Translation{
			{Source: "Root:Shoot", Target: "One"},
			{Source: "Combat:Shoot", Target: "Two"},
		})
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], domain.ErrAmbiguousLeafTranslation)
		assert.Contains(t, errs[0].Error(), `"Shoot"`)
	})

	t.Run("same target is not ambiguous", func(t *testing.T) {
		_, errs := tree.NewNameTranslator(nodes, []tree.Translation{
			{Source: "Root:Shoot", Target: "One"},
			{Source: "Combat:Shoot", Target: "One"},
		})
		assert.Empty(t, errs)
	})

	t.Run("unmatched", func(t *testing.T) {
		_, errs := tree.NewNameTranslator(nodes, []tree.Translation{
			{Source: "Combat:Idle", Target: "X"},
			{Source: "Jump", Target: "Y"},
			{Source: "Combat:Root:Shoot", Target: "Z"},
		})
		require.Len(t, errs, 3)
		for _, err := range errs {
			assert.ErrorIs(t, err, domain.ErrUnmatchedLeafTranslation)
		}
	})

	t.Run("branch names are not leaves", func(t *testing.T) {
		_, errs := tree.NewNameTranslator(nodes, []tree.Translation{{Source: "Combat", Target: "X"}})
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], domain.ErrUnmatchedLeafTranslation)
	})
}

func TestTree_BehaviorUsesTranslation(t *testing.T) {
	tmpl := dsl.New("Soldier").
		Translate("Root:Shoot", "SoldierShoot").
		Root(dsl.Priority("Root", dsl.Leaf("Shoot"))).
		MustBuild()
	tr := tmpl.Instantiate()
	tr.Evaluate(tmpl.NewStore())
	assert.Equal(t, "SoldierShoot", tr.Behavior())
}

func TestSignalTable_Process(t *testing.T) {
	decls := variables.NewDeclarations()
	seen, _ := decls.Declare("Seen", false)
	alert, _ := decls.Declare("Alert", false)
	calm, _ := decls.Declare("Calm", true)

	table := tree.NewSignalTable()
	table.Add("OnEnemy", seen, condition.Program{})
	// Reads the value written by the previous entry.
	table.Add("OnEnemy", alert, condition.MustCompile("Seen & Calm", decls))
	table.Add("OnEnemy", calm, condition.MustCompile("0", decls))

	store := variables.NewStore(decls)
	assert.True(t, table.Process("OnEnemy", store))
	assert.Equal(t, map[domain.VariableID]bool{seen: true, alert: true, calm: false}, store.Values())

	assert.False(t, table.Process("OnFriend", store))
	assert.True(t, table.Has("OnEnemy"))
	assert.Equal(t, []string{"OnEnemy"}, table.Signals())
	assert.Len(t, table.Entries("OnEnemy"), 3)
}
