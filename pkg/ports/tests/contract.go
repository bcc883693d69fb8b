package tests

import (
	"testing"

	"github.com/aretw0/seltree/pkg/ports"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an
// adapter complies with ports.DefinitionLoader.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, setupData map[string][]byte) {
	t.Helper()

	t.Run("GetDefinition_Success", func(t *testing.T) {
		for id, expectedContent := range setupData {
			content, err := loader.GetDefinition(id)
			if err != nil {
				t.Fatalf("unexpected error getting definition %s: %v", id, err)
			}
			if string(content) != string(expectedContent) {
				t.Errorf("content mismatch for %s. got %q, want %q", id, content, expectedContent)
			}
		}
	})

	t.Run("GetDefinition_NotFound", func(t *testing.T) {
		_, err := loader.GetDefinition("non-existent.xml")
		if err == nil {
			t.Error("expected error for non-existent definition, got nil")
		}
	})

	t.Run("ListDefinitions", func(t *testing.T) {
		ids, err := loader.ListDefinitions()
		if err != nil {
			t.Fatalf("unexpected error listing definitions: %v", err)
		}

		if len(ids) != len(setupData) {
			t.Errorf("expected %d definitions, got %d", len(setupData), len(ids))
		}

		for i := 1; i < len(ids); i++ {
			if ids[i-1] > ids[i] {
				t.Errorf("definitions not sorted: %q before %q", ids[i-1], ids[i])
			}
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("definition %s missing from list", id)
			}
		}
	})
}
