// Package condition compiles boolean expressions over declared variables into
// a flat, index-addressed op program and evaluates it.
//
// Grammar, lowest to highest precedence:
//
//	logical := and (('|' | '^') and)*
//	and     := comp ('&' comp)*
//	comp    := unary (('==' | '!=') unary)?
//	unary   := '!' unary | value
//	value   := identifier | '0' | '1' | '(' logical ')'
package condition

import "github.com/aretw0/seltree/pkg/domain"

// Op is one slot of a Program. Binary and unary ops reference the slots of
// their operands by index; an operand index is always smaller than the index
// of the op using it.
type Op interface {
	op()
}

// Not negates the value of slot Operand.
type Not struct{ Operand int }

// And is the conjunction of slots Left and Right.
type And struct{ Left, Right int }

// Or is the disjunction of slots Left and Right.
type Or struct{ Left, Right int }

// Xor is the exclusive disjunction of slots Left and Right.
type Xor struct{ Left, Right int }

// Equal holds when slots Left and Right carry the same value.
type Equal struct{ Left, Right int }

// NotEqual holds when slots Left and Right differ.
type NotEqual struct{ Left, Right int }

// Constant is a literal value.
type Constant struct{ Value bool }

// Variable reads a fact from the variable store.
type Variable struct{ ID domain.VariableID }

func (Not) op()      {}
func (And) op()      {}
func (Or) op()       {}
func (Xor) op()      {}
func (Equal) op()    {}
func (NotEqual) op() {}
func (Constant) op() {}
func (Variable) op() {}

// operands returns the operand indices of binary ops.
func operands(o Op) (left, right int, ok bool) {
	switch v := o.(type) {
	case And:
		return v.Left, v.Right, true
	case Or:
		return v.Left, v.Right, true
	case Xor:
		return v.Left, v.Right, true
	case Equal:
		return v.Left, v.Right, true
	case NotEqual:
		return v.Left, v.Right, true
	}
	return 0, 0, false
}

// apply combines two operand values with a binary op.
func apply(o Op, a, b bool) bool {
	switch o.(type) {
	case And:
		return a && b
	case Or:
		return a || b
	case Xor:
		return a != b
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	}
	panic("condition: apply on non-binary op")
}

// withOperands rebuilds a binary op with new operand indices.
func withOperands(o Op, left, right int) Op {
	switch o.(type) {
	case And:
		return And{left, right}
	case Or:
		return Or{left, right}
	case Xor:
		return Xor{left, right}
	case Equal:
		return Equal{left, right}
	case NotEqual:
		return NotEqual{left, right}
	}
	panic("condition: withOperands on non-binary op")
}

func symbol(o Op) string {
	switch o.(type) {
	case And:
		return "&"
	case Or:
		return "|"
	case Xor:
		return "^"
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	}
	return "?"
}
