package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/internal/document"
)

func element(tag string, attrs ...string) *document.Element {
	el := &document.Element{Tag: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attrs = append(el.Attrs, document.Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return el
}

func TestDecode_VariableDefault(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"0", false},
		{"true", true},
		{"false", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			var attrs VariableAttrs
			require.NoError(t, Decode(element("Variable", "name", "Alive", "default", tt.value), &attrs))
			assert.Equal(t, "Alive", attrs.Name)
			assert.Equal(t, tt.want, attrs.Default)
		})
	}
}

func TestDecode_MissingAndUnknownAttributes(t *testing.T) {
	var attrs NodeAttrs
	require.NoError(t, Decode(element("Leaf", "name", "Shoot", "color", "red"), &attrs))
	assert.Equal(t, NodeAttrs{Name: "Shoot"}, attrs)
}

func TestDecode_InvalidBool(t *testing.T) {
	var attrs VariableAttrs
	err := Decode(element("Variable", "name", "Alive", "default", "maybe"), &attrs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<Variable>")
}
