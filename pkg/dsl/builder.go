package dsl

import (
	"strconv"

	"github.com/aretw0/seltree/internal/block"
	"github.com/aretw0/seltree/internal/compiler"
	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

// Builder assembles one selection tree.
type Builder struct {
	name    string
	typeTag string
	vars    []*document.Element
	signals []*document.Element
	names   []*document.Element
	blocks  []*document.Element
	root    *NodeBuilder
}

// New starts a tree with the given template name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Type sets the template's category tag.
func (b *Builder) Type(tag string) *Builder {
	b.typeTag = tag
	return b
}

// Variable declares a variable with its default.
func (b *Builder) Variable(name string, def bool) *Builder {
	b.vars = append(b.vars, &document.Element{
		Tag: variables.TagVariable,
		Attrs: []document.Attr{
			{Name: "name", Value: name},
			{Name: "default", Value: strconv.FormatBool(def)},
		},
	})
	return b
}

// Signal maps signal onto variable, which is set to the value of expr when
// the signal arrives. An empty expr sets the variable to true.
func (b *Builder) Signal(signal, variable, expr string) *Builder {
	b.signals = append(b.signals, &document.Element{
		Tag: compiler.TagSignal,
		Attrs: []document.Attr{
			{Name: "name", Value: signal},
			{Name: "variable", Value: variable},
			{Name: "value", Value: expr},
		},
	})
	return b
}

// Translate maps the leaf named by source onto an external behavior name.
func (b *Builder) Translate(source, target string) *Builder {
	b.names = append(b.names, &document.Element{
		Tag: compiler.TagTranslation,
		Attrs: []document.Attr{
			{Name: "source", Value: source},
			{Name: "target", Value: target},
		},
	})
	return b
}

// Block declares a block in the tree's scope.
func (b *Builder) Block(name string, content ...*NodeBuilder) *Builder {
	el := &document.Element{Tag: block.TagBlock, Attrs: []document.Attr{{Name: "name", Value: name}}}
	for _, c := range content {
		el.Children = append(el.Children, c.el)
	}
	b.blocks = append(b.blocks, el)
	return b
}

// Root sets the root node.
func (b *Builder) Root(n *NodeBuilder) *Builder {
	b.root = n
	return b
}

// Element returns the <SelectionTree> element the builder describes.
func (b *Builder) Element() *document.Element {
	el := &document.Element{
		Tag:   compiler.TagSelectionTree,
		Attrs: []document.Attr{{Name: "name", Value: b.name}},
	}
	if b.typeTag != "" {
		el.Attrs = append(el.Attrs, document.Attr{Name: "type", Value: b.typeTag})
	}
	section := func(tag string, children []*document.Element) {
		if len(children) > 0 {
			el.Children = append(el.Children, &document.Element{Tag: tag, Children: children})
		}
	}
	section(block.TagBlocks, b.blocks)
	section(variables.TagVariables, b.vars)
	section(compiler.TagSignalVariables, b.signals)
	section(compiler.TagLeafTranslations, b.names)
	if b.root != nil {
		el.Children = append(el.Children, b.root.el)
	}
	return el
}

// XML renders the tree as a definition document, for loaders that read
// definitions as bytes.
func (b *Builder) XML() ([]byte, error) {
	return document.MarshalXML(b.Element())
}

// Build compiles the tree into a template.
func (b *Builder) Build() (*tree.Template, error) {
	doc := &document.Document{ID: "dsl:" + b.name, Root: b.Element()}
	c := compiler.New(nil)

	errs := c.RegisterBlocks(doc)
	if len(errs) == 0 {
		var tmpls []*tree.Template
		tmpls, errs = c.Compile(doc)
		if len(errs) == 0 {
			return tmpls[0], nil
		}
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, &domain.AggregateError{Errors: errs}
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *tree.Template {
	tmpl, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tmpl
}
