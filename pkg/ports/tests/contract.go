package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// CatalogContractTest is a reusable test suite that verifies if an adapter complies with ports.Catalog.
// expected lists the protocols the catalog was seeded with.
func CatalogContractTest(t *testing.T, catalog ports.Catalog, expected []*domain.StepSchema) {
	t.Helper()
	ctx := context.Background()

	t.Run("Lookup_Success", func(t *testing.T) {
		for _, want := range expected {
			got, err := catalog.Lookup(ctx, want.ProtocolID)
			if err != nil {
				t.Fatalf("unexpected error looking up %s: %v", want.ProtocolID, err)
			}
			if got.ProtocolID != want.ProtocolID {
				t.Errorf("protocol id mismatch: got %q, want %q", got.ProtocolID, want.ProtocolID)
			}
			if got.Len() != want.Len() {
				t.Errorf("%s: got %d steps, want %d", want.ProtocolID, got.Len(), want.Len())
			}
			if err := got.Validate(); err != nil {
				t.Errorf("%s: catalog returned an invalid schema: %v", want.ProtocolID, err)
			}
		}
	})

	t.Run("Lookup_NotFound", func(t *testing.T) {
		_, err := catalog.Lookup(ctx, "non-existent-protocol")
		if !errors.Is(err, domain.ErrUnknownProtocol) {
			t.Errorf("expected ErrUnknownProtocol, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		ids, err := catalog.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing protocols: %v", err)
		}

		if len(ids) != len(expected) {
			t.Errorf("expected %d protocols, got %d", len(expected), len(ids))
		}

		for i := 1; i < len(ids); i++ {
			if ids[i-1] > ids[i] {
				t.Errorf("list is not sorted: %v", ids)
				break
			}
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for _, want := range expected {
			if !lookup[want.ProtocolID] {
				t.Errorf("protocol %s missing from list", want.ProtocolID)
			}
		}
	})
}
