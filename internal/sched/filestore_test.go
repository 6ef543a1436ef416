package sched

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "postbot/pkg/logx"
)

func testJobs(base time.Time) []Job {
	return []Job{
		{ID: 1, Kind: KindTextMessage, Due: base.Add(time.Hour), Chat: "100", Text: "a", Created: base},
		{ID: 2, Kind: KindStatusText, Due: base.Add(2 * time.Hour), Text: "b", Origin: "100", Created: base},
		{ID: 5, Kind: KindStatusImage, Due: base.Add(3 * time.Hour), MediaPath: "/tmp/x.jpg", Caption: "c", Created: base},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.json")

	st, err := openFileStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("openFileStore: %v", err)
	}
	base := time.Now().Truncate(time.Second)
	want := testJobs(base)
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Fresh handle, as after a restart.
	st2, err := openFileStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("openFileStore: %v", err)
	}
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
		if got[i].ID != want[i].ID || got[i].Kind != want[i].Kind {
			t.Fatalf("job[%d] = %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Due.Equal(want[i].Due) {
			t.Fatalf("job[%d].Due = %v, want %v", i, got[i].Due, want[i].Due)
		}
	}
}

func TestFileStoreAbsentFileInitializesEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "jobs.json")

	st, err := openFileStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("openFileStore: %v", err)
	}
	jobs, maxID, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(jobs) != 0 || maxID != 0 {
		t.Fatalf("jobs=%v maxID=%d, want empty", jobs, maxID)
	}
	// An empty state must have been persisted.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist after first load: %v", err)
	}
}

func TestFileStoreMalformedFileFallsBackToEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st, err := openFileStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("openFileStore: %v", err)
	}
	jobs, maxID, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load should not fail on malformed file: %v", err)
	}
	if len(jobs) != 0 || maxID != 0 {
		t.Fatalf("jobs=%v maxID=%d, want empty", jobs, maxID)
	}
}

func TestFileStoreClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := openFileStore(filepath.Join(t.TempDir(), "jobs.json"), logx.Nop())
	if err != nil {
		t.Fatalf("openFileStore: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Save(ctx, nil); err == nil {
		t.Fatal("expected error saving to closed store")
	}
	if _, _, err := st.Load(ctx); err == nil {
		t.Fatal("expected error loading from closed store")
	}
}
