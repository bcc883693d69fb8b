package document

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChildrenKey is the YAML mapping key holding an element's ordered children.
const ChildrenKey = "children"

// ParseYAML decodes a YAML definition into an element tree.
//
// Every element is a single-key mapping whose key is the tag. The value is
// either empty, a sequence of child elements, or a mapping whose scalar
// entries are attributes and whose "children" entry is the child sequence:
//
//	SelectionTrees:
//	  children:
//	    - SelectionTree:
//	        name: Soldier
//	        children:
//	          - Leaf: {name: Idle}
func ParseYAML(data []byte) (*Element, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("yaml: document has no root element")
	}
	return yamlElement(doc.Content[0])
}

func yamlElement(n *yaml.Node) (*Element, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, fmt.Errorf("yaml: line %d: element must be a single-key mapping", n.Line)
	}
	key, body := n.Content[0], n.Content[1]
	if key.Kind != yaml.ScalarNode || key.Value == "" {
		return nil, fmt.Errorf("yaml: line %d: element tag must be a scalar", key.Line)
	}

	el := &Element{Tag: key.Value, Line: key.Line}
	switch body.Kind {
	case yaml.ScalarNode:
		if body.Tag != "!!null" && body.Value != "" {
			return nil, fmt.Errorf("yaml: line %d: element %q has a scalar body", body.Line, el.Tag)
		}
	case yaml.SequenceNode:
		children, err := yamlChildren(body)
		if err != nil {
			return nil, err
		}
		el.Children = children
	case yaml.MappingNode:
		for i := 0; i+1 < len(body.Content); i += 2 {
			k, v := body.Content[i], body.Content[i+1]
			if k.Value == ChildrenKey {
				if v.Kind != yaml.SequenceNode {
					return nil, fmt.Errorf("yaml: line %d: %q of %q must be a sequence", v.Line, ChildrenKey, el.Tag)
				}
				children, err := yamlChildren(v)
				if err != nil {
					return nil, err
				}
				el.Children = children
				continue
			}
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("yaml: line %d: attribute %q of %q must be a scalar", v.Line, k.Value, el.Tag)
			}
			el.Attrs = append(el.Attrs, Attr{Name: k.Value, Value: v.Value})
		}
	default:
		return nil, fmt.Errorf("yaml: line %d: unsupported body for %q", body.Line, el.Tag)
	}
	return el, nil
}

func yamlChildren(seq *yaml.Node) ([]*Element, error) {
	children := make([]*Element, 0, len(seq.Content))
	for _, item := range seq.Content {
		child, err := yamlElement(item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}
