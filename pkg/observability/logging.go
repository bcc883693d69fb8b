package observability

import (
	"log/slog"

	"github.com/aretw0/seltree/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event to logger.
// Evaluations log at Debug only when the selection changes.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluate: func(e *domain.EvaluateEvent) {
			if e.Selected == e.Previous {
				return
			}
			logger.Debug("behavior_switch",
				"template", e.Template,
				"previous", e.Previous,
				"selected", e.Selected,
				"behavior", e.Behavior,
			)
		},
		OnSignal: func(e *domain.SignalEvent) {
			logger.Debug("signal", "template", e.Template, "signal", e.Signal, "matched", e.Matched)
		},
		OnLoad: func(e *domain.LoadEvent) {
			if e.Err != nil {
				logger.Warn("load_failed", "files", e.Files, "errors", e.Errors)
				return
			}
			logger.Info("load", "templates", e.Templates, "files", e.Files)
		},
	}
}
