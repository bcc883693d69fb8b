/*
Package domain contains the shared vocabulary of the seltree engine.

It defines the identifiers used by compiled trees, the load-time error taxonomy,
the lifecycle hooks emitted during evaluation, and the Snapshot that carries the
only per-agent state that must survive a save/restore cycle. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - NodeID: 1-based index into a tree's flat node array (0 means "no selection").
  - VariableID: dense per-template identifier of a boolean fact.
  - NodeKind: Leaf, Priority, StateMachine or Sequence.
  - LoadError / AggregateError: load-time failures, collected across a folder.
  - Snapshot: current node, variable values and evaluation cursors of one agent.
*/
package domain
