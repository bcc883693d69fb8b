// Package document provides the element tree that definition files are parsed
// into. The loader only needs tag lookup, attribute lookup by name, ordered
// child iteration and a stable per-file identifier for error messages.
package document

// Attr is a single named attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of a parsed definition document.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []*Element
	Line     int // 1-based source line, 0 when unknown
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrMap returns the attributes as a map, for struct decoding.
func (e *Element) AttrMap() map[string]any {
	m := make(map[string]any, len(e.Attrs))
	for _, a := range e.Attrs {
		m[a.Name] = a.Value
	}
	return m
}

// Child returns the first direct child with the given tag, or nil.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildrenByTag returns every direct child with the given tag, in order.
func (e *Element) ChildrenByTag(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Document is a parsed definition file.
type Document struct {
	// ID is the stable identifier of the source (its path relative to the
	// loaded folder), used in error messages.
	ID   string
	Root *Element
}
