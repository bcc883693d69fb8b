package block

import (
	"fmt"

	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/pkg/domain"
)

// DefaultMaxDepth bounds block reference nesting.
const DefaultMaxDepth = 16

// Iterator presents the children of an element as one flat sequence,
// inlining <Ref name="..."/> elements with the content of the referenced
// block. Use it like bufio.Scanner:
//
//	it := block.NewIterator(reg, el, scope, file)
//	for it.Next() {
//		use(it.Element())
//	}
//	if err := it.Err(); err != nil { ... }
//
// References resolve in the iterator's scope first, then globally. Expansion
// is lazy and the sequence can be rewound with First.
type Iterator struct {
	reg      *Registry
	root     *document.Element
	scope    string
	file     string
	depth    int
	maxDepth int

	pos int
	sub *Iterator

	cur      *document.Element
	curFile  string
	curDepth int
	err      error
}

// Option configures an Iterator.
type Option func(*Iterator)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(it *Iterator) {
		if n > 0 {
			it.maxDepth = n
		}
	}
}

// NewIterator creates an iterator over root's children. file identifies the
// document root belongs to, for error messages.
func NewIterator(reg *Registry, root *document.Element, scope, file string, opts ...Option) *Iterator {
	it := &Iterator{
		reg:      reg,
		root:     root,
		scope:    scope,
		file:     file,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// First rewinds the iterator to the first child of the root element.
func (it *Iterator) First() {
	it.pos = 0
	it.sub = nil
	it.cur = nil
	it.err = nil
}

// Next advances to the next element, expanding references as they are met.
// It returns false at the end of the sequence or on error.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.sub != nil {
			if it.sub.Next() {
				it.cur, it.curFile, it.curDepth = it.sub.cur, it.sub.curFile, it.sub.curDepth
				return true
			}
			if err := it.sub.Err(); err != nil {
				return it.fail(err)
			}
			it.sub = nil
		}

		if it.root == nil || it.pos >= len(it.root.Children) {
			it.cur = nil
			return false
		}
		el := it.root.Children[it.pos]
		it.pos++

		if el.Tag != TagRef {
			it.cur, it.curFile, it.curDepth = el, it.file, it.depth
			return true
		}

		name, _ := el.Attr("name")
		if name == "" {
			return it.fail(&domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   it.file,
				Detail: fmt.Sprintf("line %d: <%s> without a name", el.Line, TagRef),
			})
		}
		blk, ok := it.reg.Lookup(it.scope, name)
		if !ok {
			return it.fail(&domain.LoadError{
				Err:   domain.ErrBlockNotFound,
				File:  it.file,
				Scope: it.scope,
				Name:  name,
			})
		}
		if it.depth+1 > it.maxDepth {
			return it.fail(&domain.LoadError{
				Err:    domain.ErrBlockRecursionTooDeep,
				File:   it.file,
				Scope:  it.scope,
				Name:   name,
				Detail: fmt.Sprintf("nesting exceeds %d levels", it.maxDepth),
			})
		}
		it.sub = &Iterator{
			reg:      it.reg,
			root:     blk.Element,
			scope:    it.scope,
			file:     blk.File,
			depth:    it.depth + 1,
			maxDepth: it.maxDepth,
		}
	}
}

func (it *Iterator) fail(err error) bool {
	it.err = err
	it.cur = nil
	it.sub = nil
	return false
}

// Element returns the current element. Only valid after Next returned true.
func (it *Iterator) Element() *document.Element { return it.cur }

// File returns the document the current element was declared in. For
// elements inlined from a block this is the block's file.
func (it *Iterator) File() string { return it.curFile }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Scope returns the scope references are resolved in.
func (it *Iterator) Scope() string { return it.scope }

// Descend returns an iterator over the current element's children. It keeps
// the reference depth at which the current element was produced, so cycles
// running through nested elements still hit the depth bound.
func (it *Iterator) Descend() *Iterator {
	return &Iterator{
		reg:      it.reg,
		root:     it.cur,
		scope:    it.scope,
		file:     it.curFile,
		depth:    it.curDepth,
		maxDepth: it.maxDepth,
	}
}

// Collect drains the iterator from the start and returns every element.
func (it *Iterator) Collect() ([]*document.Element, error) {
	it.First()
	var out []*document.Element
	for it.Next() {
		out = append(out, it.cur)
	}
	return out, it.Err()
}
