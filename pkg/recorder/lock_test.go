package recorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manas360/stepwise/pkg/adapters/memory"
	"github.com/manas360/stepwise/pkg/ports"
)

func TestRecorder_LockLifecycle(t *testing.T) {
	rec := New(memory.NewStore())
	ctx := context.Background()
	count := 2000
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("rec-%d", i)
		if err := rec.Record(ctx, ports.NewContractRecord(id, fmt.Sprintf("patient-%d", i), ts)); err != nil {
			t.Fatal(err)
		}
		if err := rec.Delete(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	if n := len(rec.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining after Delete", n)
	}
}
