package tree

import (
	"slices"

	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
)

// VariableWriter is the read-write side of a variable store.
type VariableWriter interface {
	condition.Reader
	Set(id domain.VariableID, value bool) bool
}

// SignalEntry writes the value of Condition into Variable.
type SignalEntry struct {
	Variable  domain.VariableID
	Condition condition.Program
}

// SignalTable maps signal names onto the variables they flip. It is built
// during loading and read-only afterwards.
type SignalTable struct {
	entries map[string][]SignalEntry
}

// NewSignalTable returns an empty table.
func NewSignalTable() *SignalTable {
	return &SignalTable{entries: make(map[string][]SignalEntry)}
}

// Add appends an entry for signal. Entries run in the order they were added.
func (t *SignalTable) Add(signal string, variable domain.VariableID, cond condition.Program) {
	t.entries[signal] = append(t.entries[signal], SignalEntry{Variable: variable, Condition: cond})
}

// Process evaluates every entry of signal against vars and writes each result
// before evaluating the next, so later entries observe earlier writes. It
// reports whether the signal is known.
func (t *SignalTable) Process(signal string, vars VariableWriter) bool {
	entries, ok := t.entries[signal]
	if !ok {
		return false
	}
	for _, e := range entries {
		vars.Set(e.Variable, e.Condition.Evaluate(vars))
	}
	return true
}

// Has reports whether signal has entries.
func (t *SignalTable) Has(signal string) bool {
	_, ok := t.entries[signal]
	return ok
}

// Entries returns a copy of the entries of signal.
func (t *SignalTable) Entries(signal string) []SignalEntry {
	return slices.Clone(t.entries[signal])
}

// Signals returns the known signal names, sorted.
func (t *SignalTable) Signals() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
