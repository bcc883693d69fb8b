package cli

import (
	"fmt"

	"github.com/aretw0/seltree/internal/presentation/tui"
	"github.com/aretw0/seltree/pkg/tree"
)

// Inspect prints a markdown report of the loaded templates, optionally
// restricted to one type tag.
func Inspect(opts Options, typeTag string) error {
	w := opts.out()
	eng, err := createEngine(opts, createLogger(opts.Debug))
	if err != nil {
		return err
	}

	names := eng.Names()
	if typeTag != "" {
		names = eng.LookupByTypeTag(typeTag)
		if len(names) == 0 {
			return fmt.Errorf("no templates with type %q", typeTag)
		}
	}

	tmpls := make([]*tree.Template, 0, len(names))
	for _, name := range names {
		tmpl, err := eng.Template(name)
		if err != nil {
			return err
		}
		tmpls = append(tmpls, tmpl)
	}

	if tui.IsTerminal(w) {
		tui.PrintBanner(w)
	}
	out, err := tui.NewRenderer(w)(tui.Report(tmpls))
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Fprint(w, out)
	return nil
}
