package cli

import (
	"fmt"

	"github.com/aretw0/seltree/internal/presentation/tui"
	"github.com/aretw0/seltree/pkg/domain"
)

// Validate loads every definition and reports all problems in one pass.
func Validate(opts Options) error {
	w := opts.out()
	logger := createLogger(opts.Debug)

	eng, err := createEngine(opts, logger)
	if err != nil {
		errs := domain.LoadErrors(err)
		for _, e := range errs {
			fmt.Fprintf(w, "  - %v\n", e)
		}
		fmt.Fprintf(w, "%s %d problem(s) in %s\n", tui.Status(w, "invalid", false), len(errs), opts.Config.Dir)
		return fmt.Errorf("validation failed: %d problem(s)", len(errs))
	}

	reg := eng.Registry()
	fmt.Fprintf(w, "%s %d template(s), %d block(s), %d file(s)\n",
		tui.Status(w, "valid", true), len(reg.Names()), reg.Blocks(), len(reg.Files()))
	return nil
}
