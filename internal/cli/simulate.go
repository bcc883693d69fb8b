package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/seltree/internal/config"
	"github.com/aretw0/seltree/pkg/agent"
	"github.com/aretw0/seltree/pkg/domain"
)

// Script drives one agent through a fixed series of ticks.
//
// Without an agent id the run is ephemeral. With one, the agent is created
// in the configured store on first use and resumed on later runs.
type Script struct {
	Template string `yaml:"template"`
	Agent    string `yaml:"agent"`
	Steps    []Step `yaml:"steps"`
}

// Step delivers signals, then sets variables, then ticks Repeat times.
type Step struct {
	Signals []string        `yaml:"signals"`
	Set     map[string]bool `yaml:"set"`
	// Repeat is the number of ticks; zero means one.
	Repeat int `yaml:"repeat"`
	// Expect lists the behaviors the ticks must select, in order. It may be
	// shorter than Repeat.
	Expect []string `yaml:"expect"`
}

// TickResult is one evaluation of a simulation.
type TickResult struct {
	Tick     int    `json:"tick"`
	Behavior string `json:"behavior"`
	Path     string `json:"path"`
}

// SimulationResult collects every tick and failed expectation of a run.
type SimulationResult struct {
	Agent    string
	Ticks    []TickResult
	Failures []string
}

// LoadScript reads a YAML simulation script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if s.Template == "" && s.Agent == "" {
		return nil, fmt.Errorf("script %s: template or agent is required", path)
	}
	return &s, nil
}

// Simulate runs script and prints one line per tick. It returns an error
// when any expectation fails; the result is returned either way.
func Simulate(ctx context.Context, opts Options, script *Script) (*SimulationResult, error) {
	w := opts.out()
	logger := createLogger(opts.Debug)
	eng, err := createEngine(opts, logger)
	if err != nil {
		return nil, err
	}

	storeCfg := opts.Config.Store
	agentID := script.Agent
	if agentID == "" {
		agentID = "simulation"
		storeCfg = config.StoreConfig{Backend: config.BackendMemory}
	}
	sessions, closeStore, err := setupSessions(eng, storeCfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	snap, err := sessions.Load(ctx, agentID)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		if script.Template == "" {
			return nil, fmt.Errorf("agent %q does not exist and the script names no template", agentID)
		}
		if _, err := sessions.Create(ctx, agentID, script.Template); err != nil {
			return nil, err
		}
		printSystemMessage(w, "Agent '%s' created from '%s'.", agentID, script.Template)
	case err != nil:
		return nil, err
	default:
		if script.Template != "" && snap.Template != script.Template {
			return nil, fmt.Errorf("agent %q runs template %q, not %q", agentID, snap.Template, script.Template)
		}
		printSystemMessage(w, "Resuming agent '%s' at '%s'.", agentID, snap.Template)
	}

	res := &SimulationResult{Agent: agentID}
	for i, step := range script.Steps {
		_, err := sessions.Update(ctx, agentID, func(a *agent.Agent) error {
			return runStep(a, i, step, res)
		})
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for _, t := range res.Ticks {
		fmt.Fprintf(w, "%4d  %-24s %s\n", t.Tick, t.Behavior, t.Path)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "FAIL  %s\n", f)
	}
	if len(res.Failures) > 0 {
		return res, fmt.Errorf("%d expectation(s) failed", len(res.Failures))
	}
	return res, nil
}

func runStep(a *agent.Agent, index int, step Step, res *SimulationResult) error {
	for _, s := range step.Signals {
		if !a.Signal(s) {
			return fmt.Errorf("unknown signal %q", s)
		}
	}
	for name, v := range step.Set {
		if _, err := a.Set(name, v); err != nil {
			return err
		}
	}

	n := max(step.Repeat, 1)
	for k := range n {
		id := a.Tick()
		t := TickResult{
			Tick:     len(res.Ticks) + 1,
			Behavior: a.Behavior(),
			Path:     a.Template().Path(id),
		}
		res.Ticks = append(res.Ticks, t)
		if k < len(step.Expect) && step.Expect[k] != t.Behavior {
			res.Failures = append(res.Failures, fmt.Sprintf("step %d tick %d: expected %q, got %q", index+1, t.Tick, step.Expect[k], t.Behavior))
		}
	}
	return nil
}
