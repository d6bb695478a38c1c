package workers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
)

func TestNextDaily(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"Before hour", time.Date(2024, 5, 1, 0, 30, 0, 0, loc), time.Date(2024, 5, 1, 1, 0, 0, 0, loc)},
		{"Exactly at hour", time.Date(2024, 5, 1, 1, 0, 0, 0, loc), time.Date(2024, 5, 2, 1, 0, 0, 0, loc)},
		{"After hour", time.Date(2024, 5, 1, 13, 0, 0, 0, loc), time.Date(2024, 5, 2, 1, 0, 0, 0, loc)},
		{"Month end", time.Date(2024, 5, 31, 23, 0, 0, 0, loc), time.Date(2024, 6, 1, 1, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDaily(tt.now, 1); !got.Equal(tt.want) {
				t.Errorf("NextDaily(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestRunEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	done := make(chan error)
	go func() {
		done <- RunEvery(ctx, 5*time.Millisecond, Job{
			Name: "count",
			Run: func(context.Context) error {
				if atomic.AddInt32(&runs, 1) == 2 {
					return errors.New("failures are logged, not fatal")
				}
				return nil
			},
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunEvery() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop")
	}
	if atomic.LoadInt32(&runs) < 3 {
		t.Errorf("expected at least 3 runs, got %d", runs)
	}
}

func TestPruneAnalyticsJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	today := time.Now().UTC().Format("2006-01-02")
	content := `{"2000-01-01":{"visits":3,"unique":[],"downloads":0,"uploads":0},"` + today + `":{"visits":1,"unique":[],"downloads":0,"uploads":0}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write analytics: %v", err)
	}

	tracker := analytics.NewService(analytics.NewRepository(path), time.UTC, "salt")
	if err := PruneAnalytics(tracker, 60).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	totals, err := tracker.Totals(60)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if totals.Visits != 1 {
		t.Errorf("expected only today's visit to remain, got %d", totals.Visits)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read analytics: %v", err)
	}
	if string(data) == content {
		t.Error("expected snapshot to be rewritten")
	}
}

func TestCleanUploadsJob(t *testing.T) {
	store := assets.NewStore(t.TempDir(), nil)
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	stale := filepath.Join(store.Root(), "files", "mp3", ".upload-1")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(stale, old, old)

	if err := CleanUploads(store, time.Minute).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected stale upload to be removed")
	}
}
