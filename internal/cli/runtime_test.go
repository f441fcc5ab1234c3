package cli

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/manas360/stepwise/internal/config"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/persistence/middleware"
	"github.com/manas360/stepwise/pkg/protocols"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishSession(t *testing.T, rt *Runtime) *domain.FinalizedRecord {
	t.Helper()
	ctx := context.Background()
	state, err := rt.Engine.Start(ctx, protocols.BehavioralActivation, domain.Patient{Name: "Asha"})
	require.NoError(t, err)
	state, err = rt.Engine.JumpTo(ctx, state, state.StepCount())
	require.NoError(t, err)
	rec, err := rt.Engine.Finish(ctx, state)
	require.NoError(t, err)
	return rec
}

func TestNewRuntime_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		store config.StoreConfig
	}{
		{"memory", config.StoreConfig{Driver: config.DriverMemory}},
		{"file", config.StoreConfig{Driver: config.DriverFile, Path: filepath.Join(t.TempDir(), "records")}},
		{"sqlite", config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "records.db")}},
		{"redis", config.StoreConfig{Driver: config.DriverRedis}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store = tt.store
			cfg.Redis.Addr = mr.Addr()

			rt, err := NewRuntime(cfg, nil)
			require.NoError(t, err)
			defer func() { assert.NoError(t, rt.Close()) }()

			rec := finishSession(t, rt)
			history, err := rt.Engine.History(context.Background(), "Asha", 0)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, rec.ID, history[0].ID)

			assert.Equal(t, 1, testutil.CollectAndCount(rt.Metrics.Registry(), "stepwise_records_stored_total"))
		})
	}
}

func TestNewRuntime_ProtectsRecords(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg := config.Default()
	cfg.Encryption.Key = key
	cfg.PII.Patterns = []string{"(?i)^plannedactivities$"}

	rt, err := NewRuntime(cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	ctx := context.Background()
	state, err := rt.Engine.Start(ctx, protocols.BehavioralActivation, domain.Patient{Name: "Asha"})
	require.NoError(t, err)
	state, err = rt.Engine.SetField(state, "plannedActivities", "walk with my sister")
	require.NoError(t, err)
	state, err = rt.Engine.JumpTo(ctx, state, state.StepCount())
	require.NoError(t, err)
	rec, err := rt.Engine.Finish(ctx, state)
	require.NoError(t, err)

	raw, err := rt.Engine.Recorder().Store().Get(ctx, rec.ID)
	require.NoError(t, err)
	got, _ := raw.Data.Get("plannedActivities")
	assert.Equal(t, middleware.Mask, got)
}

func TestNewRuntime_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "mongo"
	_, err := NewRuntime(cfg, nil)
	assert.Error(t, err)
}
