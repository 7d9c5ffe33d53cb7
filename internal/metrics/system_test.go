package metrics

import (
	"context"
	"testing"
	"time"
)

func TestCollectHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := CollectHost(ctx)
	if err != nil {
		t.Fatalf("CollectHost returned error: %v", err)
	}
	if snapshot == nil {
		t.Fatal("CollectHost returned nil snapshot")
	}

	t.Run("host info", func(t *testing.T) {
		if snapshot.Hostname == "" {
			t.Error("hostname should be populated")
		}
		if snapshot.UptimeSeconds <= 0 {
			t.Errorf("uptime should be positive, got %d", snapshot.UptimeSeconds)
		}
	})

	t.Run("memory", func(t *testing.T) {
		if snapshot.Memory.Total == 0 {
			t.Error("memory total should not be 0")
		}
		if snapshot.Memory.Used > snapshot.Memory.Total {
			t.Error("memory used should not exceed total")
		}
		if snapshot.Memory.UsedPercent < 0 || snapshot.Memory.UsedPercent > 100 {
			t.Errorf("memory used percent should be between 0 and 100, got %f", snapshot.Memory.UsedPercent)
		}
	})

	// Load averages are unavailable on some platforms; when present they
	// come as the 1/5/15 minute triple.
	t.Run("load average", func(t *testing.T) {
		if len(snapshot.LoadAvg) != 0 && len(snapshot.LoadAvg) != 3 {
			t.Errorf("load avg should have 3 values, got %d", len(snapshot.LoadAvg))
		}
	})
}

func TestCollectHost_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CollectHost(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
