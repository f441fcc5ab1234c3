package ports

import (
	"context"

	"github.com/manas360/stepwise/pkg/domain"
)

// Catalog resolves protocol definitions.
type Catalog interface {
	// Lookup returns the schema of a protocol.
	// Returns an error wrapping domain.ErrUnknownProtocol when the ID is not registered.
	Lookup(ctx context.Context, protocolID string) (*domain.StepSchema, error)

	// List returns every registered protocol ID, sorted.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for catalogs that can notify about backend changes.
// This is typically used for hot-reload while authoring protocol documents.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed document.
	Watch(ctx context.Context) (<-chan string, error)
}
