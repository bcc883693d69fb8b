package tree

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/seltree/pkg/domain"
)

// PathSeparator separates the segments of a translation source.
const PathSeparator = ":"

// Translation maps a leaf, named by an optionally qualified path such as
// "Root:Combat:Shoot", onto an external behavior name.
type Translation struct {
	Source string
	Target string
}

// NameTranslator maps leaf ids onto external behavior names.
type NameTranslator struct {
	names map[domain.NodeID]string
}

type candidate struct {
	score     int
	target    string
	sources   []string
	ambiguous bool
}

// NewNameTranslator matches every translation against the leaves in nodes.
// A source matches a leaf when its last segment is the leaf's name and the
// remaining segments appear, in order, among the leaf's ancestors. Per leaf
// the match with the most segments wins. Ties between different targets and
// translations that match no leaf are reported as errors. A leaf without
// any translation is not an error: its own name is already a valid behavior,
// so translations only need to cover the leaves that are renamed.
func NewNameTranslator(nodes []Node, translations []Translation) (*NameTranslator, []error) {
	var errs []error
	best := make(map[domain.NodeID]*candidate)
	var order []domain.NodeID

	for _, tr := range translations {
		segments := strings.Split(tr.Source, PathSeparator)
		matched := false

		for i := range nodes {
			if !nodes[i].IsLeaf() || !matchPath(nodes, i, segments) {
				continue
			}
			matched = true
			id := domain.NodeIDFromIndex(i)
			score := len(segments)

			c, ok := best[id]
			switch {
			case !ok:
				best[id] = &candidate{score: score, target: tr.Target, sources: []string{tr.Source}}
				order = append(order, id)
			case score > c.score:
				*c = candidate{score: score, target: tr.Target, sources: []string{tr.Source}}
			case score == c.score:
				c.sources = append(c.sources, tr.Source)
				if tr.Target != c.target {
					c.ambiguous = true
				}
			}
		}

		if !matched {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrUnmatchedLeafTranslation,
				Name:   tr.Source,
				Detail: fmt.Sprintf("no leaf matches (target %q)", tr.Target),
			})
		}
	}

	names := make(map[domain.NodeID]string, len(best))
	for _, id := range order {
		c := best[id]
		if c.ambiguous {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrAmbiguousLeafTranslation,
				Name:   nodes[id.Index()].Name,
				Detail: "equally specific sources " + strings.Join(c.sources, ", "),
			})
			continue
		}
		names[id] = c.target
	}
	return &NameTranslator{names: names}, errs
}

// matchPath reports whether segments name the leaf at index i.
func matchPath(nodes []Node, i int, segments []string) bool {
	last := len(segments) - 1
	if nodes[i].Name != segments[last] {
		return false
	}
	// Match the remaining segments upward, nearest ancestor first.
	want := last - 1
	for cur := nodes[i].Parent; want >= 0 && cur.Valid(); cur = nodes[cur.Index()].Parent {
		if nodes[cur.Index()].Name == segments[want] {
			want--
		}
	}
	return want < 0
}

// Translate returns the external name of a leaf. ok is false for ids without
// a translation.
func (t *NameTranslator) Translate(id domain.NodeID) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[id]
	return name, ok
}

// Len returns the number of translated leaves.
func (t *NameTranslator) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Entries returns a copy of the id to name mapping.
func (t *NameTranslator) Entries() map[domain.NodeID]string {
	if t == nil {
		return map[domain.NodeID]string{}
	}
	return maps.Clone(t.names)
}
