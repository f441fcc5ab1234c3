package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/manas360/stepwise/pkg/adapters/memory"
	"github.com/manas360/stepwise/pkg/persistence/middleware"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

var recordedAt = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunRecordStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secure := mw(underlying)
	ctx := context.Background()

	original := ports.NewContractRecord("rec-1", "Asha", recordedAt)
	require.NoError(t, secure.Append(ctx, original))

	stored, err := underlying.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EnvelopeKey}, stored.Data.Keys(), "plaintext data must not reach the store")
	assert.Equal(t, "Asha", stored.PatientIdentifier)
	assert.Equal(t, original.TemplateID, stored.TemplateID)

	loaded, err := secure.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, original.Data.Keys(), loaded.Data.Keys())
	assert.Equal(t, original.Data.ToMap(), loaded.Data.ToMap())
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, secureOld.Append(ctx, ports.NewContractRecord("old", "Asha", recordedAt)))

	secureNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	_, err := secureNew.Get(ctx, "old")
	require.NoError(t, err, "fallback key must open records sealed with the old key")

	require.NoError(t, secureNew.Append(ctx, ports.NewContractRecord("new", "Asha", recordedAt.Add(time.Hour))))

	_, err = secureOld.Get(ctx, "new")
	assert.Error(t, err, "old key alone cannot open records sealed with the new key")

	all, err := secureNew.List(ctx, ports.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEncryptionMiddleware_BindsRecordID(t *testing.T) {
	underlying := memory.NewStore()
	key := generateKey(t)
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Append(ctx, ports.NewContractRecord("a", "Asha", recordedAt)))
	sealed, err := underlying.Get(ctx, "a")
	require.NoError(t, err)

	sealed.ID = "b"
	require.NoError(t, underlying.Append(ctx, sealed))

	_, err = secure.Get(ctx, "b")
	assert.Error(t, err, "an envelope copied under another id must not decrypt")
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Append(ctx, ports.NewContractRecord("plain", "Asha", recordedAt)))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Get(ctx, "plain")
	assert.True(t, errors.Is(err, middleware.ErrMissingEnvelope))
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
