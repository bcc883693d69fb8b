package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/tree"
)

// GraphOverlay contains one agent's state to highlight on the graph.
type GraphOverlay struct {
	Current domain.NodeID
	// Active holds the active state index of every state machine.
	Active map[domain.NodeID]int
}

// OverlayFor captures the selection and active states of tr.
func OverlayFor(tr *tree.Tree) *GraphOverlay {
	o := &GraphOverlay{Current: tr.Current(), Active: make(map[domain.NodeID]int)}
	for i, n := range tr.Template().Nodes() {
		if n.Kind == domain.KindStateMachine {
			id := domain.NodeIDFromIndex(i)
			o.Active[id] = tr.Cursor(id)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a template.
// It applies semantic styling:
// - Priority: {Rhombus}
// - Sequence: [[Subroutine]]
// - StateMachine: ((Circle))
// - Leaf: [Rectangle], with its translated behavior when one exists
// Edges carry the guard condition. State machine edges are labelled with the
// state name and transitions are drawn as dotted edges between states.
func GenerateMermaid(tmpl *tree.Template, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	names := tmpl.Declarations().Name
	nodes := tmpl.Nodes()
	for i, n := range nodes {
		id := domain.NodeIDFromIndex(i)

		opener, closer := "[", "]"
		switch n.Kind {
		case domain.KindPriority:
			opener, closer = "{", "}"
		case domain.KindSequence:
			opener, closer = "[[", "]]"
		case domain.KindStateMachine:
			opener, closer = "((", "))"
		}

		label := escape(n.Name)
		if behavior, ok := tmpl.Translator().Translate(id); ok && behavior != n.Name {
			label += " <br/> " + escape(behavior)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(id), opener, label, closer)

		for _, c := range n.Children {
			sb.WriteString(edge(id, c.ID, "-->", format(c.Condition, names)))
		}
		for _, s := range n.States {
			sb.WriteString(edge(id, s.Child, "-->", escape(s.Name)))
		}
		for _, s := range n.States {
			for _, tr := range s.Transitions {
				to := n.States[tr.Target].Child
				cond := format(tr.Condition, names)
				if cond == "" {
					cond = "always"
				}
				sb.WriteString(edge(s.Child, to, "-.->", cond))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme.
		sb.WriteString("    classDef active fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for i, n := range nodes {
			id := domain.NodeIDFromIndex(i)
			idx, ok := overlay.Active[id]
			if !ok || n.Kind != domain.KindStateMachine || idx < 0 || idx >= len(n.States) {
				continue
			}
			fmt.Fprintf(&sb, "    class %s active;\n", nodeID(n.States[idx].Child))
		}
		if _, ok := tmpl.Node(overlay.Current); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.Current))
		}
	}

	return sb.String()
}

func edge(from, to domain.NodeID, arrow, label string) string {
	if label == "" {
		return fmt.Sprintf("    %s %s %s\n", nodeID(from), arrow, nodeID(to))
	}
	if arrow == "-.->" {
		return fmt.Sprintf("    %s -. \"%s\" .-> %s\n", nodeID(from), label, nodeID(to))
	}
	return fmt.Sprintf("    %s -- \"%s\" --> %s\n", nodeID(from), label, nodeID(to))
}

func format(p condition.Program, name func(domain.VariableID) string) string {
	return escape(p.Format(name))
}

// Node names are free text, so diagram ids use the node id instead.
func nodeID(id domain.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
