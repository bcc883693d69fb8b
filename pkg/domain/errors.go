package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Load-time error kinds. Each is wrapped by a LoadError carrying its location.
var (
	ErrBlockNotFound              = errors.New("block not found")
	ErrBlockRecursionTooDeep      = errors.New("block recursion too deep")
	ErrDuplicateBlock             = errors.New("duplicate block")
	ErrDuplicateVariable          = errors.New("duplicate variable")
	ErrUnknownVariableInCondition = errors.New("unknown variable in condition")
	ErrMalformedConditionSyntax   = errors.New("malformed condition syntax")
	ErrAmbiguousLeafTranslation   = errors.New("ambiguous leaf translation")
	ErrUnmatchedLeafTranslation   = errors.New("unmatched leaf translation")
	ErrMalformedNode              = errors.New("malformed node")
	ErrDuplicateTemplate          = errors.New("duplicate template")
	ErrMalformedDocument          = errors.New("malformed document")
)

// ErrTemplateNotFound is returned when a registry lookup names an unknown template.
var ErrTemplateNotFound = errors.New("template not found")

// ErrUnknownVariable is returned by name-based store access for undeclared names.
var ErrUnknownVariable = errors.New("unknown variable")

// ErrSnapshotNotFound is returned when a store holds no snapshot for an agent.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotMismatch is returned when a snapshot is restored against a
// template other than the one it was taken from.
var ErrSnapshotMismatch = errors.New("snapshot does not match template")

// LoadError locates a single load-time failure.
type LoadError struct {
	Err    error  // One of the Err* kinds above
	File   string // Definition file the failure was found in
	Scope  string // Block scope (block errors only)
	Name   string // Block, variable, leaf, node or template name
	Detail string // Human-readable specifics
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Err.Error())
	switch {
	case e.Scope != "" && e.Name != "":
		fmt.Fprintf(&sb, " %q in scope %q", e.Name, e.Scope)
	case e.Name != "":
		fmt.Fprintf(&sb, " %q", e.Name)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// AggregateError represents every failure collected during a batch load.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d load errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// LoadErrors returns all collected errors if err is an AggregateError,
// the error itself if it is a single error, and nil otherwise.
func LoadErrors(err error) []error {
	if err == nil {
		return nil
	}
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return []error{err}
}
