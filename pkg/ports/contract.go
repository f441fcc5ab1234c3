package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewContractRecord builds a record with a nested group and a selection, the
// shapes every backend must round-trip with key order intact.
func NewContractRecord(id, patient string, ts time.Time) *domain.FinalizedRecord {
	emotions := domain.NewValues()
	emotions.Set("shame", "")
	emotions.Set("anxiety", "6")
	emotions.Set("other", "7")
	emotions.Set("otherName", "Guilt")

	data := domain.NewValues()
	data.Set("situation", "Boss criticized me")
	data.Set("emotions", emotions)
	data.Set("distortions", []string{"labeling", "catastrophizing"})
	data.Set("alternativeThought", "")

	return &domain.FinalizedRecord{
		ID:                id,
		TemplateID:        "cognitive_restructuring",
		PatientIdentifier: patient,
		Timestamp:         ts,
		Data:              data,
		Status:            domain.StatusCompleted,
	}
}

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore implementation
// adheres to the defined interface contract. The store must be empty.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Append and Get", func(t *testing.T) {
		id := prefix + "-get"
		rec := NewContractRecord(id, "Asha", base)

		require.NoError(t, store.Append(ctx, rec), "Append should not return error")

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.TemplateID, loaded.TemplateID)
		assert.Equal(t, rec.PatientIdentifier, loaded.PatientIdentifier)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		assert.True(t, rec.Timestamp.Equal(loaded.Timestamp), "timestamp should survive")

		assert.Equal(t, rec.Data.Keys(), loaded.Data.Keys(), "top-level key order should survive")
		group, ok := loaded.Data.Get("emotions")
		require.True(t, ok)
		assert.Equal(t, []string{"shame", "anxiety", "other", "otherName"}, group.(*domain.Values).Keys(), "group key order should survive")
		sel, _ := loaded.Data.Get("distortions")
		assert.Equal(t, []string{"labeling", "catastrophizing"}, sel)

		require.NoError(t, store.Delete(ctx, id))
	})

	t.Run("Stored copy is isolated", func(t *testing.T) {
		id := prefix + "-iso"
		rec := NewContractRecord(id, "Asha", base)
		require.NoError(t, store.Append(ctx, rec))
		rec.Data.Set("situation", "mutated after append")

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		got, _ := loaded.Data.Get("situation")
		assert.Equal(t, "Boss criticized me", got)

		loaded.Data.Set("situation", "mutated after get")
		again, err := store.Get(ctx, id)
		require.NoError(t, err)
		got, _ = again.Data.Get("situation")
		assert.Equal(t, "Boss criticized me", got)

		require.NoError(t, store.Delete(ctx, id))
	})

	t.Run("Duplicate Append", func(t *testing.T) {
		id := prefix + "-dup"
		require.NoError(t, store.Append(ctx, NewContractRecord(id, "Asha", base)))
		err := store.Append(ctx, NewContractRecord(id, "Asha", base))
		assert.ErrorIs(t, err, domain.ErrDuplicateRecord)
		require.NoError(t, store.Delete(ctx, id))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		id := prefix + "-del"
		require.NoError(t, store.Append(ctx, NewContractRecord(id, "Asha", base)))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Get after Delete should return ErrRecordNotFound")
		assert.ErrorIs(t, store.Delete(ctx, id), domain.ErrRecordNotFound)
	})

	t.Run("List newest first with filters", func(t *testing.T) {
		patients := []string{"Asha", "Ravi", "Asha", "Asha"}
		var ids []string
		for i, p := range patients {
			id := fmt.Sprintf("%s-list-%d", prefix, i)
			rec := NewContractRecord(id, p, base.Add(time.Duration(i)*time.Hour))
			if i == 3 {
				rec.TemplateID = "anxiety_management"
			}
			require.NoError(t, store.Append(ctx, rec))
			ids = append(ids, id)
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		all, err := store.List(ctx, RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[3], ids[2], ids[1], ids[0]}, recordIDs(all))

		asha, err := store.List(ctx, RecordFilter{PatientIdentifier: "Asha"})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[3], ids[2], ids[0]}, recordIDs(asha))

		cr, err := store.List(ctx, RecordFilter{PatientIdentifier: "Asha", TemplateID: "cognitive_restructuring"})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[0]}, recordIDs(cr))

		limited, err := store.List(ctx, RecordFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{ids[3], ids[2]}, recordIDs(limited))

		none, err := store.List(ctx, RecordFilter{PatientIdentifier: "Nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Equal timestamps list latest append first", func(t *testing.T) {
		ts := base.Add(48 * time.Hour)
		// IDs sort against append order so an ID tiebreak fails.
		ids := []string{prefix + "-tie-z", prefix + "-tie-m", prefix + "-tie-a"}
		for _, id := range ids {
			require.NoError(t, store.Append(ctx, NewContractRecord(id, "Mira", ts)))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		want := []string{ids[2], ids[1], ids[0]}

		all, err := store.List(ctx, RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, want, recordIDs(all))

		mira, err := store.List(ctx, RecordFilter{PatientIdentifier: "Mira"})
		require.NoError(t, err)
		assert.Equal(t, want, recordIDs(mira))
	})
}

func recordIDs(records []*domain.FinalizedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
