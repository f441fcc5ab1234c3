package memory_test

import (
	"testing"

	"github.com/manas360/stepwise/pkg/adapters/memory"
	"github.com/manas360/stepwise/pkg/domain"
	contract "github.com/manas360/stepwise/pkg/ports/tests"
	"github.com/manas360/stepwise/pkg/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_Contract(t *testing.T) {
	all := protocols.All()
	catalog, err := memory.NewCatalog(all...)
	require.NoError(t, err)

	contract.CatalogContractTest(t, catalog, all)
}

func TestMemoryCatalog_RejectsInvalid(t *testing.T) {
	_, err := memory.NewCatalog(&domain.StepSchema{ProtocolID: "empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)

	first := protocols.All()[0]
	_, err = memory.NewCatalog(first, first)
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}
