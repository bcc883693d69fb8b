package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/seltree/internal/presentation/graph"
)

// Graph prints the Mermaid diagram of a template. With agentID the stored
// agent's selection and active states are highlighted, and template may be
// left empty.
func Graph(ctx context.Context, opts Options, template, agentID string) error {
	logger := createLogger(opts.Debug)
	eng, err := createEngine(opts, logger)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if agentID != "" {
		sessions, closeStore, err := setupSessions(eng, opts.Config.Store, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := sessions.Load(ctx, agentID)
		if err != nil {
			return err
		}
		a, err := eng.Restore(snap)
		if err != nil {
			return err
		}
		if template != "" && template != snap.Template {
			return fmt.Errorf("agent %q runs template %q, not %q", agentID, snap.Template, template)
		}
		template = snap.Template
		overlay = graph.OverlayFor(a.Tree())
	}

	if template == "" {
		return fmt.Errorf("a template name or an agent id is required")
	}
	tmpl, err := eng.Template(template)
	if err != nil {
		return err
	}
	fmt.Fprint(opts.out(), graph.GenerateMermaid(tmpl, overlay))
	return nil
}
