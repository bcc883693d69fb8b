// Package compiler turns parsed definition documents into tree templates.
// Compilation is two-phase: every document's blocks are registered first,
// then each <SelectionTree> is compiled with references resolved against the
// complete block registry.
//
// A <Signal> without a value attribute compiles to the empty program, which
// is true, so the signal sets its variable.
package compiler

import (
	"errors"
	"fmt"

	"github.com/aretw0/seltree/internal/block"
	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/internal/dto"
	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

// Document structure tags.
const (
	TagSelectionTrees   = "SelectionTrees"
	TagSelectionTree    = "SelectionTree"
	TagSignalVariables  = "SignalVariables"
	TagSignal           = "Signal"
	TagLeafTranslations = "LeafTranslations"
	TagTranslation      = "Translation"
	TagState            = "State"
	TagTransitions      = "Transitions"
	TagTransition       = "Transition"
)

// Compiler compiles documents against a shared block registry.
type Compiler struct {
	blocks   *block.Registry
	maxDepth int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxDepth bounds block reference nesting.
func WithMaxDepth(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// New creates a compiler. A nil registry gets a fresh one.
func New(blocks *block.Registry, opts ...Option) *Compiler {
	if blocks == nil {
		blocks = block.NewRegistry()
	}
	c := &Compiler{blocks: blocks, maxDepth: block.DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Blocks returns the registry blocks are registered into.
func (c *Compiler) Blocks() *block.Registry { return c.blocks }

// RegisterBlocks registers the <Blocks> sections of doc. Top-level sections
// register into the global scope and sections inside a tree into the tree's
// scope, unless a block names its own scope.
func (c *Compiler) RegisterBlocks(doc *document.Document) []error {
	root := doc.Root
	switch root.Tag {
	case block.TagBlocks:
		return c.blocks.Register(doc.ID, root, block.GlobalScope)
	case TagSelectionTree:
		return c.registerTreeBlocks(doc.ID, root)
	case TagSelectionTrees:
		var errs []error
		for _, el := range root.Children {
			switch el.Tag {
			case block.TagBlocks:
				errs = append(errs, c.blocks.Register(doc.ID, el, block.GlobalScope)...)
			case TagSelectionTree:
				errs = append(errs, c.registerTreeBlocks(doc.ID, el)...)
			}
		}
		return errs
	}
	return nil
}

func (c *Compiler) registerTreeBlocks(file string, el *document.Element) []error {
	name, _ := el.Attr("name")
	var errs []error
	for _, section := range el.ChildrenByTag(block.TagBlocks) {
		errs = append(errs, c.blocks.Register(file, section, name)...)
	}
	return errs
}

// Compile compiles every tree in doc. Blocks must already be registered.
// Templates that compiled cleanly are returned alongside the errors of the
// ones that did not.
func (c *Compiler) Compile(doc *document.Document) ([]*tree.Template, []error) {
	root := doc.Root
	switch root.Tag {
	case block.TagBlocks:
		return nil, nil
	case TagSelectionTree:
		tmpl, errs := c.CompileTree(doc.ID, root)
		if tmpl == nil {
			return nil, errs
		}
		return []*tree.Template{tmpl}, errs
	case TagSelectionTrees:
	default:
		return nil, []error{&domain.LoadError{
			Err:    domain.ErrMalformedDocument,
			File:   doc.ID,
			Detail: fmt.Sprintf("unexpected root <%s>", root.Tag),
		}}
	}

	var out []*tree.Template
	var errs []error
	for _, el := range root.Children {
		switch el.Tag {
		case block.TagBlocks:
		case TagSelectionTree:
			tmpl, terrs := c.CompileTree(doc.ID, el)
			errs = append(errs, terrs...)
			if tmpl != nil {
				out = append(out, tmpl)
			}
		default:
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   doc.ID,
				Detail: fmt.Sprintf("line %d: unexpected <%s> in <%s>", el.Line, el.Tag, TagSelectionTrees),
			})
		}
	}
	return out, errs
}

// section is a tree-level element captured with its own child iterator.
type section struct {
	el   *document.Element
	file string
	it   *block.Iterator
}

// CompileTree compiles one <SelectionTree> element declared in file.
func (c *Compiler) CompileTree(file string, el *document.Element) (*tree.Template, []error) {
	var attrs dto.TreeAttrs
	if err := dto.Decode(el, &attrs); err != nil {
		return nil, []error{&domain.LoadError{Err: domain.ErrMalformedDocument, File: file, Detail: err.Error()}}
	}
	if attrs.Name == "" {
		return nil, []error{&domain.LoadError{
			Err:    domain.ErrMalformedDocument,
			File:   file,
			Detail: fmt.Sprintf("line %d: <%s> without a name", el.Line, TagSelectionTree),
		}}
	}

	b := &builder{name: attrs.Name, file: file}

	// Sections may come in any order and through references, so they are
	// gathered first and compiled in dependency order.
	sections := make(map[string]*section)
	var roots []*section
	it := block.NewIterator(c.blocks, el, attrs.Name, file, block.WithMaxDepth(c.maxDepth))
	for it.Next() {
		cur := it.Element()
		s := &section{el: cur, file: it.File(), it: it.Descend()}
		switch cur.Tag {
		case block.TagBlocks:
		case variables.TagVariables, TagSignalVariables, TagLeafTranslations:
			if _, dup := sections[cur.Tag]; dup {
				b.malformedDocument(s.file, "duplicate <%s> section in tree %q", cur.Tag, attrs.Name)
				continue
			}
			sections[cur.Tag] = s
		default:
			if _, ok := domain.ParseNodeKind(cur.Tag); ok {
				roots = append(roots, s)
				continue
			}
			b.malformedDocument(s.file, "line %d: unexpected <%s> in tree %q", cur.Line, cur.Tag, attrs.Name)
		}
	}
	if err := it.Err(); err != nil {
		b.errs = append(b.errs, err)
	}

	if s, ok := sections[variables.TagVariables]; ok {
		decls, errs := variables.LoadDeclarations(s.it)
		b.decls = decls
		b.errs = append(b.errs, errs...)
	} else {
		b.decls = variables.NewDeclarations()
	}

	switch len(roots) {
	case 0:
		b.malformedNode(file, attrs.Name, "tree has no root node")
	case 1:
		b.unguarded(roots[0].file, b.node(roots[0], domain.InvalidNodeID), "the root node")
	default:
		b.malformedNode(file, attrs.Name, "tree has %d root nodes", len(roots))
	}

	signals := tree.NewSignalTable()
	if s, ok := sections[TagSignalVariables]; ok {
		b.signals(s.it, signals)
	}
	var translations []tree.Translation
	if s, ok := sections[TagLeafTranslations]; ok {
		translations = b.translations(s.it)
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}

	tmpl, err := tree.NewTemplate(tree.Definition{
		Name:         attrs.Name,
		Type:         attrs.Type,
		File:         file,
		Nodes:        b.nodes,
		Declarations: b.decls,
		Signals:      signals,
		Translations: translations,
	})
	if err != nil {
		return nil, domain.LoadErrors(err)
	}
	return tmpl, nil
}

// builder accumulates one tree's nodes and errors.
type builder struct {
	name  string
	file  string
	decls *variables.Declarations
	nodes []tree.Node
	errs  []error

	// aborted is set by the first runaway block expansion. No further
	// nodes are built once it is set, so a block that references itself
	// several times fails with one error instead of one per expansion.
	aborted bool
}

func (b *builder) malformedDocument(file, format string, args ...any) {
	b.errs = append(b.errs, &domain.LoadError{
		Err:    domain.ErrMalformedDocument,
		File:   file,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (b *builder) malformedNode(file, name, format string, args ...any) {
	b.errs = append(b.errs, &domain.LoadError{
		Err:    domain.ErrMalformedNode,
		File:   file,
		Name:   name,
		Detail: fmt.Sprintf(format, args...),
	})
}

// condition compiles expr and folds it. Failures are recorded and yield the
// empty program.
func (b *builder) condition(file, owner, expr string) condition.Program {
	prog, err := condition.Compile(expr, b.decls)
	if err == nil {
		return prog.Fold()
	}
	le := &domain.LoadError{Err: domain.ErrMalformedConditionSyntax, File: file, Name: owner, Detail: err.Error()}
	var cerr *condition.Error
	if errors.As(err, &cerr) {
		le.Err = cerr.Err
		if cerr.Ident != "" {
			le.Name = cerr.Ident
			le.Detail = fmt.Sprintf("in condition of %q: %v", owner, err)
		}
	}
	b.errs = append(b.errs, le)
	return condition.Program{}
}

func (b *builder) drain(it *block.Iterator) []*section {
	var out []*section
	for it.Next() {
		out = append(out, &section{el: it.Element(), file: it.File(), it: it.Descend()})
	}
	if err := it.Err(); err != nil {
		if errors.Is(err, domain.ErrBlockRecursionTooDeep) {
			if b.aborted {
				return nil
			}
			b.aborted = true
		}
		b.errs = append(b.errs, err)
	}
	return out
}

// node appends the node s describes, then its subtree, and returns its id.
// Nodes are numbered in pre-order, so a parent always precedes its children.
func (b *builder) node(s *section, parent domain.NodeID) domain.NodeID {
	if b.aborted {
		return domain.InvalidNodeID
	}
	kind, ok := domain.ParseNodeKind(s.el.Tag)
	if !ok {
		b.malformedNode(s.file, s.el.Tag, "line %d: unknown node type <%s>", s.el.Line, s.el.Tag)
		return domain.InvalidNodeID
	}

	var attrs dto.NodeAttrs
	if err := dto.Decode(s.el, &attrs); err != nil {
		b.malformedDocument(s.file, "%v", err)
		return domain.InvalidNodeID
	}
	if attrs.Name == "" {
		b.malformedNode(s.file, s.el.Tag, "line %d: <%s> without a name", s.el.Line, s.el.Tag)
		return domain.InvalidNodeID
	}

	b.nodes = append(b.nodes, tree.Node{
		Name:      attrs.Name,
		Parent:    parent,
		Kind:      kind,
		Condition: b.condition(s.file, attrs.Name, attrs.Condition),
	})
	id := domain.NodeIDFromIndex(len(b.nodes) - 1)

	children := b.drain(s.it)
	switch kind {
	case domain.KindLeaf:
		if len(children) > 0 {
			b.malformedNode(s.file, attrs.Name, "leaf has children")
		}
	case domain.KindPriority, domain.KindSequence:
		var edges []tree.Child
		for _, cs := range children {
			if b.aborted {
				break
			}
			childID := b.node(cs, id)
			if !childID.Valid() {
				continue
			}
			edges = append(edges, tree.Child{ID: childID, Condition: b.nodes[childID.Index()].Condition})
		}
		b.nodes[id.Index()].Children = edges
	case domain.KindStateMachine:
		b.nodes[id.Index()].States = b.states(s.file, attrs.Name, id, children)
	}
	return id
}

// unguarded rejects a condition on a node that is entered without one being
// evaluated. Only children of Priority and Sequence nodes carry guards.
func (b *builder) unguarded(file string, id domain.NodeID, where string) {
	if !id.Valid() {
		return
	}
	n := &b.nodes[id.Index()]
	if n.Condition.Empty() {
		return
	}
	b.malformedNode(file, n.Name, "%s cannot have a condition", where)
}

type pendingTransition struct {
	state int
	to    string
	cond  condition.Program
	file  string
}

func (b *builder) states(file, owner string, id domain.NodeID, elems []*section) []tree.State {
	var states []tree.State
	var pending []pendingTransition

	for _, s := range elems {
		if b.aborted {
			return states
		}
		if s.el.Tag != TagState {
			b.malformedNode(s.file, owner, "line %d: unexpected <%s> in state machine", s.el.Line, s.el.Tag)
			continue
		}
		var attrs dto.StateAttrs
		if err := dto.Decode(s.el, &attrs); err != nil || attrs.Name == "" {
			b.malformedNode(s.file, owner, "line %d: <%s> without a name", s.el.Line, TagState)
			continue
		}

		index := len(states)
		state := tree.State{Name: attrs.Name}
		var nodes []*section
		for _, cs := range b.drain(s.it) {
			if cs.el.Tag == TagTransitions {
				for _, ts := range b.drain(cs.it) {
					if ts.el.Tag != TagTransition {
						b.malformedNode(ts.file, owner, "line %d: unexpected <%s> in <%s>", ts.el.Line, ts.el.Tag, TagTransitions)
						continue
					}
					var tattrs dto.TransitionAttrs
					if err := dto.Decode(ts.el, &tattrs); err != nil || tattrs.To == "" {
						b.malformedNode(ts.file, owner, "line %d: <%s> without a target", ts.el.Line, TagTransition)
						continue
					}
					pending = append(pending, pendingTransition{
						state: index,
						to:    tattrs.To,
						cond:  b.condition(ts.file, owner+"."+attrs.Name, tattrs.Condition),
						file:  ts.file,
					})
				}
				continue
			}
			nodes = append(nodes, cs)
		}

		if len(nodes) != 1 {
			b.malformedNode(s.file, owner, "state %q must hold exactly one node, found %d", attrs.Name, len(nodes))
			continue
		}
		if state.Child = b.node(nodes[0], id); !state.Child.Valid() {
			continue
		}
		b.unguarded(nodes[0].file, state.Child, fmt.Sprintf("the node of state %q", attrs.Name))
		if prev := indexOf(states, attrs.Name); prev >= 0 {
			b.malformedNode(s.file, owner, "duplicate state %q", attrs.Name)
		}
		states = append(states, state)
	}

	for _, p := range pending {
		if p.state >= len(states) {
			continue
		}
		target := indexOf(states, p.to)
		if target < 0 {
			b.malformedNode(p.file, owner, "transition from %q to unknown state %q", states[p.state].Name, p.to)
			continue
		}
		states[p.state].Transitions = append(states[p.state].Transitions, tree.Transition{Condition: p.cond, Target: target})
	}
	if len(elems) == 0 {
		b.malformedNode(file, owner, "state machine has no states")
	}
	return states
}

func indexOf(states []tree.State, name string) int {
	for i, s := range states {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (b *builder) signals(it *block.Iterator, table *tree.SignalTable) {
	for _, s := range b.drain(it) {
		if s.el.Tag != TagSignal {
			b.malformedDocument(s.file, "line %d: unexpected <%s> in <%s>", s.el.Line, s.el.Tag, TagSignalVariables)
			continue
		}
		var attrs dto.SignalAttrs
		if err := dto.Decode(s.el, &attrs); err != nil {
			b.malformedDocument(s.file, "%v", err)
			continue
		}
		if attrs.Name == "" || attrs.Variable == "" {
			b.malformedDocument(s.file, "line %d: <%s> needs name and variable", s.el.Line, TagSignal)
			continue
		}
		id, ok := b.decls.Lookup(attrs.Variable)
		if !ok {
			b.errs = append(b.errs, &domain.LoadError{
				Err:    domain.ErrUnknownVariableInCondition,
				File:   s.file,
				Name:   attrs.Variable,
				Detail: fmt.Sprintf("signal %q writes an undeclared variable", attrs.Name),
			})
			continue
		}
		table.Add(attrs.Name, id, b.condition(s.file, attrs.Name, attrs.Value))
	}
}

func (b *builder) translations(it *block.Iterator) []tree.Translation {
	var out []tree.Translation
	for _, s := range b.drain(it) {
		if s.el.Tag != TagTranslation {
			b.malformedDocument(s.file, "line %d: unexpected <%s> in <%s>", s.el.Line, s.el.Tag, TagLeafTranslations)
			continue
		}
		var attrs dto.TranslationAttrs
		if err := dto.Decode(s.el, &attrs); err != nil {
			b.malformedDocument(s.file, "%v", err)
			continue
		}
		if attrs.Source == "" || attrs.Target == "" {
			b.malformedDocument(s.file, "line %d: <%s> needs source and target", s.el.Line, TagTranslation)
			continue
		}
		out = append(out, tree.Translation{Source: attrs.Source, Target: attrs.Target})
	}
	return out
}
