/*
Package seltree is a data-driven selection-tree engine: it picks one active
leaf behavior out of a named tree of candidates every tick, driven by boolean
variables and named signals.

Trees are declared in XML or YAML definition files. Blocks of elements can be
declared once and referenced from many trees, conditions are small boolean
expressions compiled at load time, and each tree is compiled into an
immutable template shared by every agent that uses it. An agent only owns
its variable values, its evaluation cursors and its current selection, so a
snapshot of those three restores it exactly.

# Node kinds

  - Leaf: a behavior. Selecting it is the outcome of an evaluation.
  - Priority: the first child whose condition holds, preferring the branch
    that was active on the previous tick.
  - Sequence: rotates through its children, one per successful evaluation.
  - StateMachine: evaluates the child of its active state; guarded
    transitions move between states, at most one per tick.

# Usage

	eng, err := seltree.New("./definitions")
	if err != nil {
		log.Fatal(err)
	}

	guard, err := eng.NewAgent("guard-1", "Guard")
	if err != nil {
		log.Fatal(err)
	}

	for range ticker.C {
		guard.Tick()
		act(guard.Behavior())
	}

Signals from the host world flip variables through the tree's signal table:

	guard.Signal("OnEnemySeen")

A load collects every error in the definition folder before failing, so one
run reports every broken file:

	if _, err := seltree.New("./definitions"); err != nil {
		for _, e := range domain.LoadErrors(err) {
			fmt.Println(e)
		}
	}
*/
package seltree
