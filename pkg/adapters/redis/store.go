package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and locker.
const DefaultPrefix = "stepwise:"

// Store implements ports.RecordStore using Redis.
// Records are JSON strings; a global ZSET and one ZSET per patient index
// them by timestamp so listings come back newest first. Index members are
// "<seq>:<id>" with a zero-padded append sequence, so records sharing a
// millisecond come back most recently appended first.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets a retention period for records. Expired records disappear
// from listings lazily.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + "record:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) patientKey(patient string) string {
	return s.prefix + "patient:" + patient
}

func (s *Store) seqKey() string {
	return s.prefix + "seq"
}

func score(ts time.Time) float64 {
	return float64(ts.UnixMilli())
}

// storedRecord is the persisted shape: the record plus its append sequence.
type storedRecord struct {
	domain.FinalizedRecord
	Seq int64 `json:"seq"`
}

func (r *storedRecord) member() string {
	return indexMember(r.Seq, r.ID)
}

func indexMember(seq int64, id string) string {
	return fmt.Sprintf("%020d:%s", seq, id)
}

func memberID(member string) string {
	_, id, found := strings.Cut(member, ":")
	if !found {
		return member
	}
	return id
}

// Append stores the record. SET NX guards against overwriting an existing ID.
func (s *Store) Append(ctx context.Context, record *domain.FinalizedRecord) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	stored := storedRecord{FinalizedRecord: *record, Seq: seq}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(record.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
	}

	member := backend.Z{Score: score(record.Timestamp), Member: stored.member()}
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.indexKey(), member)
	pipe.ZAdd(ctx, s.patientKey(record.PatientIdentifier), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index record: %w", err)
	}

	return nil
}

// Get retrieves a record.
func (s *Store) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &stored.FinalizedRecord, nil
}

func (s *Store) load(ctx context.Context, id string) (*storedRecord, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(id, val)
}

func decode(id, val string) (*storedRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &stored, nil
}

// List walks the timestamp index newest first. Index entries whose record has
// expired are pruned on the way.
func (s *Store) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	index := s.indexKey()
	if filter.PatientIdentifier != "" {
		index = s.patientKey(filter.PatientIdentifier)
	}

	members, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]*domain.FinalizedRecord, 0)
	if len(members) == 0 {
		return out, nil
	}

	ids := make([]string, len(members))
	keys := make([]string, len(members))
	for i, member := range members {
		ids[i] = memberID(member)
		keys[i] = s.key(ids[i])
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	var expired []any
	for i, raw := range vals {
		str, ok := raw.(string)
		if !ok {
			expired = append(expired, members[i])
			continue
		}
		stored, err := decode(ids[i], str)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(&stored.FinalizedRecord) {
			continue
		}
		out = append(out, &stored.FinalizedRecord)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, index, expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired records: %w", err)
		}
	}

	return out, nil
}

// Delete removes the record and its index entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	stored, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	member := stored.member()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), member)
	pipe.ZRem(ctx, s.patientKey(stored.PatientIdentifier), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
