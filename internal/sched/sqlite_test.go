package sched

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "postbot/pkg/logx"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "jobs.db")}

	st, err := OpenStore(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	base := time.Now().Truncate(time.Second)
	want := testJobs(base)
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := OpenStore(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	got, maxID, err := st2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if maxID != 5 {
		t.Fatalf("maxID = %d, want 5", maxID)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d jobs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Kind != want[i].Kind ||
			got[i].Chat != want[i].Chat || got[i].Text != want[i].Text ||
			got[i].MediaPath != want[i].MediaPath || got[i].Caption != want[i].Caption {
			t.Fatalf("job[%d] = %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Due.Equal(want[i].Due) {
			t.Fatalf("job[%d].Due = %v, want %v", i, got[i].Due, want[i].Due)
		}
	}
}

func TestSQLiteStoreHighWaterSurvivesDeletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "jobs.db")}

	st, err := OpenStore(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	base := time.Now()
	if err := st.Save(ctx, testJobs(base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// All jobs dispatched: the pending set is now empty.
	if err := st.Save(ctx, nil); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := OpenStore(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	jobs, maxID, err := st2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no pending jobs, got %d", len(jobs))
	}
	if maxID != 5 {
		t.Fatalf("maxID = %d, want high-water 5 despite deletes", maxID)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := OpenStore(StoreConfig{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := OpenStore(StoreConfig{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}
