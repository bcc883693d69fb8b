package registry_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/adapters/memory"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/registry"
)

var _ ports.TemplateSource = (*registry.Registry)(nil)

func TestLoadFolder(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.LoadFolder("testdata/valid"))

	assert.Equal(t, []string{"Dog", "Sentry", "Soldier"}, reg.Names())
	assert.Equal(t, []string{"Sentry", "Soldier"}, reg.LookupByTypeTag("Human"))
	assert.Equal(t, []string{"Dog"}, reg.LookupByTypeTag("Animal"))
	assert.Empty(t, reg.LookupByTypeTag("Robot"))
	assert.Equal(t, []string{"Animal", "Human"}, reg.Types())
	assert.Equal(t, []string{"animals/dog.yaml", "human/soldier.xml", "shared.xml"}, reg.Files())
	assert.Equal(t, 3, reg.Blocks())
	assert.True(t, reg.Has("Soldier"))
	assert.False(t, reg.Has("Ghost"))

	_, err := reg.Template("Ghost")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	_, err = reg.Instantiate("Ghost")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestInstantiate_Soldier(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.LoadFolder("testdata/valid"))

	tr, err := reg.Instantiate("Soldier")
	require.NoError(t, err)
	assert.Equal(t, domain.InvalidNodeID, tr.Current())

	store := tr.Template().NewStore()
	var got []string
	tick := func() {
		tr.Evaluate(store)
		got = append(got, tr.Behavior())
	}

	tick()
	tick()
	assert.True(t, tr.Signal("OnNoise", store))
	tick()
	assert.True(t, tr.Signal("OnEnemySeen", store))
	tick()
	_, err = store.SetByName("HasAmmo", false)
	require.NoError(t, err)
	tick()

	assert.Equal(t, []string{"A", "B", "Search", "SoldierShoot", "Melee"}, got)
}

func TestInstantiate_IndependentCopies(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.LoadFolder("testdata/valid"))

	a, err := reg.Instantiate("Soldier")
	require.NoError(t, err)
	b, err := reg.Instantiate("Soldier")
	require.NoError(t, err)
	assert.Same(t, a.Template(), b.Template())

	store := a.Template().NewStore()
	a.Evaluate(store)
	a.Evaluate(store)
	b.Evaluate(store)
	assert.Equal(t, "B", a.Behavior())
	assert.Equal(t, "A", b.Behavior())
}

func TestLoad_YAMLDefinition(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.LoadFolder("testdata/valid"))

	tr, err := reg.Instantiate("Dog")
	require.NoError(t, err)
	store := tr.Template().NewStore()

	tr.Evaluate(store)
	assert.Equal(t, "Idle", tr.Behavior())

	tr.Signal("OnDinnerBell", store)
	v, ok := store.GetByName("Hungry")
	require.True(t, ok)
	assert.True(t, v)
}

func TestLoad_CollectsEveryError(t *testing.T) {
	reg := registry.New()
	err := reg.LoadFolder("testdata/broken")
	require.Error(t, err)

	var aggr *domain.AggregateError
	require.ErrorAs(t, err, &aggr)
	assert.Len(t, aggr.Errors, 3)
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
	assert.ErrorIs(t, err, domain.ErrUnknownVariableInCondition)
	assert.ErrorIs(t, err, domain.ErrDuplicateTemplate)
	assert.True(t, registry.IsLoadError(err))

	for _, e := range domain.LoadErrors(err) {
		var le *domain.LoadError
		require.ErrorAs(t, e, &le)
		if errors.Is(le, domain.ErrDuplicateTemplate) {
			assert.Equal(t, "Twin", le.Name)
			assert.Equal(t, "twin_b.xml", le.File)
			assert.Contains(t, le.Detail, "twin_a.xml")
		}
	}

	assert.Empty(t, reg.Names(), "nothing is committed when any file fails")
}

func TestLoad_FailureKeepsPreviousContents(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.LoadFolder("testdata/valid"))

	require.Error(t, reg.LoadFolder("testdata/broken"))
	assert.Equal(t, []string{"Dog", "Sentry", "Soldier"}, reg.Names())
}

func TestLoad_RecursionIsBounded(t *testing.T) {
	reg := registry.New(registry.WithMaxDepth(4))
	err := reg.LoadFolder("testdata/recursive")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBlockRecursionTooDeep)
}

func TestLoad_BranchingRecursionFailsFast(t *testing.T) {
	refs := strings.Repeat(`<Ref name="Loop"/>`, 3)
	loader := memory.NewLoader(map[string]string{
		"loop.xml": `<SelectionTrees>
  <Blocks><Block name="Loop"><Priority name="P">` + refs + `</Priority></Block></Blocks>
  <SelectionTree name="Looping"><Ref name="Loop"/></SelectionTree>
</SelectionTrees>`,
	})

	start := time.Now()
	err := registry.New().Load(loader)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBlockRecursionTooDeep)
	assert.Len(t, domain.LoadErrors(err), 1)
}

func TestLoad_DuplicateBlockAcrossFiles(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"a.xml": `<Blocks><Block name="X"><Leaf name="L"/></Block></Blocks>`,
		"b.xml": `<Blocks><Block name="X"><Leaf name="L"/></Block></Blocks>`,
	})
	err := registry.New().Load(loader)
	assert.ErrorIs(t, err, domain.ErrDuplicateBlock)
}

func TestLoad_MalformedDocument(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"bad.xml":  `<SelectionTree name="T">`,
		"good.xml": `<SelectionTree name="Good"><Leaf name="Root"/></SelectionTree>`,
	})
	reg := registry.New()
	err := reg.Load(loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
	assert.False(t, reg.Has("Good"))
}

func TestLoad_Hooks(t *testing.T) {
	var events []*domain.LoadEvent
	var evaluated int
	reg := registry.New(registry.WithHooks(domain.LifecycleHooks{
		OnLoad:     func(e *domain.LoadEvent) { events = append(events, e) },
		OnEvaluate: func(*domain.EvaluateEvent) { evaluated++ },
	}))

	require.NoError(t, reg.LoadFolder("testdata/valid"))
	require.Error(t, reg.LoadFolder("testdata/broken"))

	require.Len(t, events, 2)
	assert.Equal(t, 3, events[0].Templates)
	assert.Equal(t, 3, events[0].Files)
	assert.NoError(t, events[0].Err)
	assert.Equal(t, 3, events[1].Errors)
	assert.Error(t, events[1].Err)

	tr, err := reg.Instantiate("Dog")
	require.NoError(t, err)
	tr.Evaluate(tr.Template().NewStore())
	assert.Equal(t, 1, evaluated, "registry hooks reach instantiated trees")
}
