package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/tree"
)

// Report renders templates as a markdown document grouped by type tag.
func Report(tmpls []*tree.Template) string {
	byType := make(map[string][]*tree.Template)
	for _, t := range tmpls {
		byType[t.Type()] = append(byType[t.Type()], t)
	}
	tags := make([]string, 0, len(byType))
	for tag := range byType {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Templates (%d)\n\n", len(tmpls))
	for _, tag := range tags {
		title := tag
		if title == "" {
			title = "(untyped)"
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)

		group := byType[tag]
		slices.SortFunc(group, func(a, b *tree.Template) int { return strings.Compare(a.Name(), b.Name()) })
		for _, t := range group {
			writeTemplate(&sb, t)
		}
	}
	return sb.String()
}

func writeTemplate(sb *strings.Builder, t *tree.Template) {
	fmt.Fprintf(sb, "### %s\n\n", t.Name())
	fmt.Fprintf(sb, "- **File**: `%s`\n", t.File())
	fmt.Fprintf(sb, "- **Nodes**: %d\n\n", t.Len())

	decls := t.Declarations()
	if decls.Len() > 0 {
		sb.WriteString("| Variable | Default |\n|---|---|\n")
		for i, name := range decls.Names() {
			fmt.Fprintf(sb, "| %s | %t |\n", name, decls.Default(domain.VariableID(i)))
		}
		sb.WriteString("\n")
	}

	if signals := t.Signals().Signals(); len(signals) > 0 {
		sb.WriteString("**Signals**\n\n")
		for _, s := range signals {
			var writes []string
			for _, e := range t.Signals().Entries(s) {
				expr := e.Condition.Format(decls.Name)
				if expr == "" {
					expr = "1"
				}
				writes = append(writes, fmt.Sprintf("`%s = %s`", decls.Name(e.Variable), expr))
			}
			fmt.Fprintf(sb, "- %s: %s\n", s, strings.Join(writes, ", "))
		}
		sb.WriteString("\n")
	}

	entries := t.Translator().Entries()
	if len(entries) > 0 {
		ids := make([]domain.NodeID, 0, len(entries))
		for id := range entries {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		sb.WriteString("| Leaf | Behavior |\n|---|---|\n")
		for _, id := range ids {
			fmt.Fprintf(sb, "| %s | %s |\n", t.Path(id), entries[id])
		}
		sb.WriteString("\n")
	}
}
