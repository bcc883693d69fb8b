/*
Package session serialises concurrent access to persisted agents.

A Manager pairs a ports.SnapshotStore with a ports.TemplateSource. Every
operation on one agent runs under a per-agent lock, optionally backed by a
ports.DistributedLocker so replicas sharing a store do not interleave their
read-modify-write cycles.
*/
package session
