/*
Package ports defines the driven ports (interfaces) of the selection tree engine.

These interfaces decouple the core from external implementations, so the same
registry and agents work over different definition sources and snapshot
backends.

# Key Interfaces

  - DefinitionLoader: lists and reads definition documents (file system, memory).
  - Watchable: notifies a loader's owner that definitions changed.
  - SnapshotStore: persists agent snapshots (memory, file, redis, sqlite).
  - DistributedLocker: serializes access to one agent across replicas.
  - TemplateSource: resolves and instantiates compiled templates.
*/
package ports
