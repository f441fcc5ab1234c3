package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/manas360/stepwise/pkg/domain"
)

// Catalog implements ports.Catalog over a fixed set of schemas.
// Schemas are validated once at construction and shared read-only afterwards.
type Catalog struct {
	schemas map[string]*domain.StepSchema
}

// NewCatalog validates and registers the given schemas.
func NewCatalog(schemas ...*domain.StepSchema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]*domain.StepSchema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.schemas[s.ProtocolID]; dup {
			return nil, fmt.Errorf("%w: protocol %q registered twice", domain.ErrInvalidSchema, s.ProtocolID)
		}
		c.schemas[s.ProtocolID] = s
	}
	return c, nil
}

// Lookup retrieves a schema by protocol ID.
func (c *Catalog) Lookup(_ context.Context, protocolID string) (*domain.StepSchema, error) {
	s, ok := c.schemas[protocolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProtocol, protocolID)
	}
	return s, nil
}

// List returns all registered protocol IDs.
func (c *Catalog) List(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(c.schemas))
	for id := range c.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}
