package condition

import (
	"fmt"

	"github.com/aretw0/seltree/pkg/domain"
)

// Reader is the read side of a variable store.
type Reader interface {
	Get(id domain.VariableID) (value bool, ok bool)
}

// Program is a compiled condition. The zero value is the empty program, which
// evaluates to true; it represents "no condition". Programs are immutable and
// safe to copy and share.
type Program struct {
	ops  []Op
	root int
}

// Empty reports whether the program carries no ops.
func (p Program) Empty() bool { return len(p.ops) == 0 }

// Len returns the number of ops.
func (p Program) Len() int { return len(p.ops) }

// Ops returns a copy of the op slots.
func (p Program) Ops() []Op { return append([]Op(nil), p.ops...) }

// Root returns the index of the op producing the program's value.
func (p Program) Root() int { return p.root }

// Evaluate computes the program's value in a single forward pass. Variables
// the store does not know read as false. It never fails and has no side effects.
func (p Program) Evaluate(vars Reader) bool {
	if len(p.ops) == 0 {
		return true
	}

	var buf [32]bool
	var vals []bool
	if len(p.ops) <= len(buf) {
		vals = buf[:len(p.ops)]
	} else {
		vals = make([]bool, len(p.ops))
	}

	for i, o := range p.ops {
		switch v := o.(type) {
		case Constant:
			vals[i] = v.Value
		case Variable:
			if vars != nil {
				vals[i], _ = vars.Get(v.ID)
			}
		case Not:
			vals[i] = !vals[v.Operand]
		default:
			l, r, _ := operands(o)
			vals[i] = apply(o, vals[l], vals[r])
		}
	}
	return vals[p.root]
}

// Fold collapses negations of constants and binary ops over two constants
// into single constants, dropping the slots that become unreachable. The
// folded program evaluates identically to p for every store.
func (p Program) Fold() Program {
	if len(p.ops) == 0 {
		return p
	}

	out := make([]Op, 0, len(p.ops))
	constant := func(i int) (bool, bool) {
		c, ok := out[i].(Constant)
		return c.Value, ok
	}

	var emit func(i int) int
	emit = func(i int) int {
		switch v := p.ops[i].(type) {
		case Constant, Variable:
			out = append(out, v)
		case Not:
			a := emit(v.Operand)
			if c, ok := constant(a); ok {
				out[a] = Constant{!c}
				return a
			}
			out = append(out, Not{a})
		default:
			l, r, _ := operands(v)
			a := emit(l)
			b := emit(r)
			ca, okA := constant(a)
			cb, okB := constant(b)
			if okA && okB {
				out = out[:a]
				out = append(out, Constant{apply(v, ca, cb)})
				return a
			}
			out = append(out, withOperands(v, a, b))
		}
		return len(out) - 1
	}

	root := emit(p.root)
	return Program{ops: out, root: root}
}

// Format renders the program back into an expression using name to print
// variables. Binary sub-expressions are parenthesised.
func (p Program) Format(name func(domain.VariableID) string) string {
	if len(p.ops) == 0 {
		return ""
	}
	var render func(i int, top bool) string
	render = func(i int, top bool) string {
		switch v := p.ops[i].(type) {
		case Constant:
			if v.Value {
				return "1"
			}
			return "0"
		case Variable:
			return name(v.ID)
		case Not:
			return "!" + render(v.Operand, false)
		default:
			l, r, _ := operands(v)
			s := render(l, false) + " " + symbol(v) + " " + render(r, false)
			if top {
				return s
			}
			return "(" + s + ")"
		}
	}
	return render(p.root, true)
}

func (p Program) String() string {
	return p.Format(func(id domain.VariableID) string { return fmt.Sprintf("v%d", id) })
}

// Variables returns the distinct variable ids the program reads, in slot order.
func (p Program) Variables() []domain.VariableID {
	var out []domain.VariableID
	seen := make(map[domain.VariableID]bool)
	for _, o := range p.ops {
		if v, ok := o.(Variable); ok && !seen[v.ID] {
			seen[v.ID] = true
			out = append(out, v.ID)
		}
	}
	return out
}

// validate checks the no-forward-reference invariant.
func (p Program) validate() error {
	if len(p.ops) == 0 {
		return nil
	}
	if p.root < 0 || p.root >= len(p.ops) {
		return fmt.Errorf("root %d out of range", p.root)
	}
	for i, o := range p.ops {
		var refs []int
		if n, ok := o.(Not); ok {
			refs = []int{n.Operand}
		} else if l, r, ok := operands(o); ok {
			refs = []int{l, r}
		}
		for _, ref := range refs {
			if ref < 0 || ref >= i {
				return fmt.Errorf("op %d references slot %d", i, ref)
			}
		}
	}
	return nil
}

var _ fmt.Stringer = Program{}
