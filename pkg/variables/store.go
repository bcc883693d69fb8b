package variables

import (
	"fmt"
	"time"

	"github.com/aretw0/seltree/pkg/domain"
)

// DefaultHistoryCapacity is the number of flips a store remembers.
const DefaultHistoryCapacity = 64

// Change is one recorded flip of a variable.
type Change struct {
	Timestamp time.Time         `json:"timestamp"`
	ID        domain.VariableID `json:"id"`
	Value     bool              `json:"value"`
}

// Store is one agent's variable values. It is not safe for concurrent use.
type Store struct {
	decls   *Declarations
	values  []bool
	changed bool

	// history is a ring buffer; head is the slot of the oldest entry.
	history  []Change
	head     int
	capacity int
	clock    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHistoryCapacity bounds the flip history. Zero disables history.
func WithHistoryCapacity(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now for history timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewStore creates a store holding the declared defaults.
func NewStore(decls *Declarations, opts ...StoreOption) *Store {
	if decls == nil {
		decls = NewDeclarations()
	}
	s := &Store{
		decls:    decls,
		values:   append([]bool(nil), decls.defaults...),
		capacity: DefaultHistoryCapacity,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Declarations returns the declarations the store was built from.
func (s *Store) Declarations() *Declarations { return s.decls }

// Get returns the value of id; ok is false for undeclared ids.
func (s *Store) Get(id domain.VariableID) (value bool, ok bool) {
	if int(id) >= len(s.values) {
		return false, false
	}
	return s.values[id], true
}

// Set writes v into id and reports whether the value flipped. Only flips are
// recorded in history and raise the changed flag. Undeclared ids are ignored.
func (s *Store) Set(id domain.VariableID, v bool) bool {
	if int(id) >= len(s.values) || s.values[id] == v {
		return false
	}
	s.values[id] = v
	s.changed = true
	s.record(Change{Timestamp: s.clock(), ID: id, Value: v})
	return true
}

func (s *Store) record(c Change) {
	if s.capacity == 0 {
		return
	}
	if len(s.history) < s.capacity {
		s.history = append(s.history, c)
		return
	}
	s.history[s.head] = c
	s.head = (s.head + 1) % len(s.history)
}

// GetByName reads a variable by its declared name.
func (s *Store) GetByName(name string) (value bool, ok bool) {
	id, ok := s.decls.Lookup(name)
	if !ok {
		return false, false
	}
	return s.Get(id)
}

// SetByName writes a variable by its declared name.
func (s *Store) SetByName(name string, v bool) (bool, error) {
	id, ok := s.decls.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, name)
	}
	return s.Set(id, v), nil
}

// Changed reports whether any variable flipped since the last ResetChanged.
func (s *Store) Changed() bool { return s.changed }

// ResetChanged clears the changed flag, typically once per tick.
func (s *Store) ResetChanged() { s.changed = false }

// History returns the recorded flips, oldest first.
func (s *Store) History() []Change {
	out := make([]Change, 0, len(s.history))
	out = append(out, s.history[s.head:]...)
	return append(out, s.history[:s.head]...)
}

// Values returns a copy of every value keyed by id.
func (s *Store) Values() map[domain.VariableID]bool {
	out := make(map[domain.VariableID]bool, len(s.values))
	for i, v := range s.values {
		out[domain.VariableID(i)] = v
	}
	return out
}

// Restore overwrites values from a persisted map without recording history.
// Ids missing from values keep their current value; undeclared ids are ignored.
func (s *Store) Restore(values map[domain.VariableID]bool) {
	for id, v := range values {
		if int(id) < len(s.values) {
			s.values[id] = v
		}
	}
	s.changed = false
}

// Reset returns every variable to its default and clears history.
func (s *Store) Reset() {
	copy(s.values, s.decls.defaults)
	s.changed = false
	s.history = s.history[:0]
	s.head = 0
}
