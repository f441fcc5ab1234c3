package middleware

import (
	"context"
	"regexp"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RecordStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of data keys
// matching any of the patterns before they reach the store. Masking is one way.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.RecordStore) ports.RecordStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, record *domain.FinalizedRecord) error {
	masked := record.Clone()
	maskValues(masked.Data, m.patterns)
	return m.next.Append(ctx, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	return m.next.Get(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	return m.next.List(ctx, filter)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func maskValues(values *domain.Values, patterns []*regexp.Regexp) {
	for _, k := range values.Keys() {
		v, _ := values.Get(k)
		if matchesAny(k, patterns) {
			values.Set(k, Mask)
			continue
		}
		if group, ok := v.(*domain.Values); ok {
			maskValues(group, patterns)
		}
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
