package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/seltree/internal/presentation/tui"
	"github.com/aretw0/seltree/pkg/domain"
)

// Watch reloads the definitions folder on every change until ctx ends,
// reporting each attempt. A failed reload keeps the previous templates.
func Watch(ctx context.Context, opts Options) error {
	w := opts.out()
	if tui.IsTerminal(w) {
		tui.PrintBanner(w)
	}

	logger := createLogger(opts.Debug)
	eng, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	printSystemMessage(w, "Watching %s with %d template(s).", opts.Config.Dir, len(eng.Names()))

	err = eng.WatchAndReload(ctx, func(changed string, err error) {
		if err != nil {
			errs := domain.LoadErrors(err)
			printSystemMessage(w, "%s %s: %d problem(s), keeping previous templates", tui.Status(w, "rejected", false), changed, len(errs))
			for _, e := range errs {
				fmt.Fprintf(w, "  - %v\n", e)
			}
			return
		}
		printSystemMessage(w, "%s %s: %d template(s)", tui.Status(w, "reloaded", true), changed, len(eng.Names()))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
