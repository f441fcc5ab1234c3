package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// EnvelopeKey is the single data key of an encrypted record.
const EnvelopeKey = "__encrypted__"

// ErrMissingEnvelope is returned when a stored record carries plaintext data.
var ErrMissingEnvelope = errors.New("record is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new records. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// so keys can rotate without rewriting old records.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.RecordStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals record data with AES-GCM.
// Identifiers, template, timestamp and status stay readable so the inner store
// can still filter and order.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.RecordStore) ports.RecordStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Append(ctx context.Context, record *domain.FinalizedRecord) error {
	plainText, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey, []byte(record.ID))
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	envelope := record.Clone()
	envelope.Data = domain.NewValues()
	envelope.Data.Set(EnvelopeKey, base64.StdEncoding.EncodeToString(ciphertext))

	return m.next.Append(ctx, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	envelope, err := m.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	envelopes, err := m.next.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.FinalizedRecord, 0, len(envelopes))
	for _, envelope := range envelopes {
		record, err := m.open(envelope)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) open(envelope *domain.FinalizedRecord) (*domain.FinalizedRecord, error) {
	raw, _ := envelope.Data.Get(EnvelopeKey)
	encoded, ok := raw.(string)
	if !ok || envelope.Data.Len() != 1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnvelope, envelope.ID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, []byte(envelope.ID), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record %s: %w", envelope.ID, err)
	}

	record := envelope.Clone()
	record.Data = domain.NewValues()
	if err := json.Unmarshal(plainText, record.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted data: %w", err)
	}
	return record, nil
}

// Helpers

func encrypt(plaintext, key, additional []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, additional), nil
}

func decryptWithRotation(ciphertext, additional, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, additional); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, additional); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, additional []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], additional)
}
