package ports

import "context"

// DefinitionLoader defines how the registry retrieves definition documents.
// This allows the storage layer (file system, memory) to be decoupled.
type DefinitionLoader interface {
	// GetDefinition retrieves the raw content of a definition by ID.
	// The ID's extension selects the document format.
	GetDefinition(id string) ([]byte, error)

	// ListDefinitions returns the IDs of every definition, sorted.
	ListDefinitions() ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the ID of each definition that changed.
	// Bursts of changes to one definition may be coalesced into a single ID.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
