// Package dto holds the typed attribute sets of definition elements. Element
// attributes are strings; Decode maps them onto these structs with weak typing
// so "1", "true" and "0", "false" become booleans.
package dto

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/seltree/internal/document"
)

// TreeAttrs are the attributes of a <SelectionTree>.
type TreeAttrs struct {
	Name string `json:"name" mapstructure:"name"`
	Type string `json:"type" mapstructure:"type"`
}

// NodeAttrs are the attributes shared by every node element.
type NodeAttrs struct {
	Name      string `json:"name" mapstructure:"name"`
	Condition string `json:"condition" mapstructure:"condition"`
}

// StateAttrs are the attributes of a <State>.
type StateAttrs struct {
	Name string `json:"name" mapstructure:"name"`
}

// TransitionAttrs are the attributes of a <Transition>.
type TransitionAttrs struct {
	To        string `json:"to" mapstructure:"to"`
	Condition string `json:"condition" mapstructure:"condition"`
}

// VariableAttrs are the attributes of a <Variable> declaration.
type VariableAttrs struct {
	Name    string `json:"name" mapstructure:"name"`
	Default bool   `json:"default" mapstructure:"default"`
}

// SignalAttrs are the attributes of a <Signal> mapping. An empty Value is
// the always-true condition.
type SignalAttrs struct {
	Name     string `json:"name" mapstructure:"name"`
	Variable string `json:"variable" mapstructure:"variable"`
	Value    string `json:"value" mapstructure:"value"`
}

// TranslationAttrs are the attributes of a leaf <Translation>.
type TranslationAttrs struct {
	Source string `json:"source" mapstructure:"source"`
	Target string `json:"target" mapstructure:"target"`
}

// Decode copies el's attributes into out, which must be a pointer to one of
// the attribute structs. Unknown attributes are ignored.
func Decode(el *document.Element, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(el.AttrMap()); err != nil {
		return fmt.Errorf("<%s> attributes: %w", el.Tag, err)
	}
	return nil
}
