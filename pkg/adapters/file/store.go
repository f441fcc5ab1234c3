package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// Store implements ports.RecordStore using the local filesystem.
// Each record is a JSON file named after its ID in a configured directory.
type Store struct {
	BasePath string

	mu      sync.Mutex
	lastSeq int64
}

// storedRecord is the on-disk shape: the record plus its append sequence,
// which orders records sharing a timestamp.
type storedRecord struct {
	domain.FinalizedRecord
	Seq int64 `json:"seq"`
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".stepwise/records".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".stepwise", "records")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return filepath.Join(s.BasePath, id+".json"), nil
}

// Append persists the record atomically.
// It writes to a temporary file first, syncs via fsync, and then links it to
// the destination so an existing record is never overwritten.
func (s *Store) Append(ctx context.Context, record *domain.FinalizedRecord) error {
	destPath, err := s.path(record.ID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure record directory: %w", err)
	}

	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
	}

	data, err := json.MarshalIndent(storedRecord{FinalizedRecord: *record, Seq: s.nextSeq()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// Same directory keeps the temp file on the destination filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+record.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
		}
		return fmt.Errorf("failed to publish record file: %w", err)
	}
	return nil
}

// nextSeq returns a strictly increasing sequence seeded from the wall clock,
// so files written by later processes still sort after earlier ones.
func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

// Get reads a record file.
func (s *Store) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	stored, err := readRecord(filePath, id)
	if err != nil {
		return nil, err
	}
	return &stored.FinalizedRecord, nil
}

func readRecord(filePath, id string) (*storedRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &stored, nil
}

// List reads every record file and returns the matches, newest first.
// Equal timestamps are ordered most recently appended first.
func (s *Store) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.FinalizedRecord{}, nil
		}
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	matched := make([]*storedRecord, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(name, ".json")
		stored, err := readRecord(filepath.Join(s.BasePath, name), id)
		if err != nil {
			return nil, err
		}
		if filter.Matches(&stored.FinalizedRecord) {
			matched = append(matched, stored)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Seq > matched[j].Seq
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*domain.FinalizedRecord, len(matched))
	for i, stored := range matched {
		out[i] = &stored.FinalizedRecord
	}
	return out, nil
}

// Delete removes the record file.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}
