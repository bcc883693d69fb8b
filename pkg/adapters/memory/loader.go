package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/seltree/internal/document"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	defs map[string][]byte
}

// NewLoader creates a new Loader with the provided raw definitions keyed by ID.
// IDs need a supported extension (.xml, .yaml, .yml) to be parsed.
func NewLoader(data map[string]string) *Loader {
	defs := make(map[string][]byte, len(data))
	for k, v := range data {
		defs[k] = []byte(v)
	}
	return &Loader{defs: defs}
}

// NewFromElements creates a Loader holding one XML definition per element.
// This handles serialization automatically, improving DX for tests.
func NewFromElements(elements map[string]*document.Element) (*Loader, error) {
	defs := make(map[string][]byte, len(elements))
	for id, el := range elements {
		data, err := document.MarshalXML(el)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definition %s: %w", id, err)
		}
		defs[id] = data
	}
	return &Loader{defs: defs}, nil
}

// GetDefinition retrieves the raw content of a definition by ID.
func (l *Loader) GetDefinition(id string) ([]byte, error) {
	content, ok := l.defs[id]
	if !ok {
		return nil, fmt.Errorf("definition not found: %s", id)
	}
	return content, nil
}

// ListDefinitions returns all available definition IDs.
func (l *Loader) ListDefinitions() ([]string, error) {
	keys := make([]string, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
