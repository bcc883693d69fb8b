package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/pkg/adapters/memory"
	contract "github.com/aretw0/seltree/pkg/ports/tests"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"soldier.xml": `<SelectionTree name="Soldier"><Leaf name="Idle"/></SelectionTree>`,
		"guard.yaml":  "SelectionTree:\n  name: Guard\n  children:\n    - Leaf: {name: Idle}\n",
	}

	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.DefinitionLoaderContractTest(t, memory.NewLoader(data), bytesData)
}

func TestNewFromElements(t *testing.T) {
	el := &document.Element{
		Tag:   "SelectionTree",
		Attrs: []document.Attr{{Name: "name", Value: "Soldier"}},
		Children: []*document.Element{
			{Tag: "Leaf", Attrs: []document.Attr{{Name: "name", Value: "Idle"}}},
		},
	}

	loader, err := memory.NewFromElements(map[string]*document.Element{"soldier.xml": el})
	require.NoError(t, err)

	data, err := loader.GetDefinition("soldier.xml")
	require.NoError(t, err)

	doc, err := document.Parse("soldier.xml", data)
	require.NoError(t, err)
	assert.Equal(t, "SelectionTree", doc.Root.Tag)
	require.Len(t, doc.Root.Children, 1)
	name, _ := doc.Root.Children[0].Attr("name")
	assert.Equal(t, "Idle", name)
}
