package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"reelkey/internal/episodes"
	"reelkey/internal/history"
	"reelkey/internal/services"
	"reelkey/internal/testsupport"
)

func TestBeginAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := services.WithRunID(context.Background(), "run-abc")
	run, err := store.BeginRun(ctx, "download")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID != "run-abc" {
		t.Fatalf("expected run id from context, got %q", run.ID)
	}

	results := []episodes.Result{
		{Index: "001", Key: "abc", Status: episodes.StatusOK, Duration: 2 * time.Second, Bytes: 1024},
		{Index: "002", Key: episodes.MissingKey, Status: episodes.StatusSkipped},
		{Index: "010", Key: "xyz", Status: episodes.StatusFailed,
			Err: services.Wrap(services.ErrExternalTool, "download", "run downloader", "exit status 1", nil)},
	}
	if err := store.FinishRun(ctx, run, results); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != history.RunFinished || got.Total != 3 || got.Succeeded != 1 || got.Skipped != 1 || got.Failed != 1 {
		t.Fatalf("unexpected run counts: %+v", got)
	}
	if got.FinishedAt.IsZero() || got.Duration() < 0 {
		t.Fatalf("expected finished timestamp, got %+v", got)
	}

	items, err := store.ListItems(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Episode != "001" || items[2].Episode != "010" {
		t.Fatalf("items not in episode order: %+v", items)
	}
	if items[0].Bytes != 1024 || items[0].Duration != 2*time.Second {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[2].ErrorKind != "external_tool" || items[2].ErrorMessage == "" {
		t.Fatalf("expected error details on failed item, got %+v", items[2])
	}
}

func TestBeginRunGeneratesID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	run, err := store.BeginRun(context.Background(), "harvest")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if len(run.ID) != 36 {
		t.Fatalf("expected uuid run id, got %q", run.ID)
	}
	if _, err := store.BeginRun(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestFinishRunOnCanceledContextMarksAborted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := store.BeginRun(ctx, "harvest")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	cancel()

	results := []episodes.Result{{Index: "001", Key: episodes.MissingKey, Status: episodes.StatusFailed, Err: context.Canceled}}
	if err := store.FinishRun(ctx, run, results); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	loaded, err := store.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if loaded.Status != history.RunAborted {
		t.Fatalf("expected aborted status, got %s", loaded.Status)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.BeginRun(services.WithRunID(ctx, "aaaa-1111"), "harvest")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if _, err := store.BeginRun(services.WithRunID(ctx, "aaaa-2222"), "harvest"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "aaaa-1")
	if err != nil {
		t.Fatalf("GetRun prefix failed: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected %s, got %s", first.ID, got.ID)
	}
	if _, err := store.GetRun(ctx, "aaaa"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, err := store.GetRun(ctx, "zzzz"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		if _, err := store.BeginRun(services.WithRunID(ctx, id), "harvest"); err != nil {
			t.Fatalf("BeginRun %s failed: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.BeginRun(context.Background(), "harvest"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	runs, err := reopened.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d", len(runs))
	}
}

func TestOpenSetsUserVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg)

	db, err := sql.Open("sqlite", cfg.History.Path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != 1 {
		t.Fatalf("user_version = %d, want 1", version)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.History.Path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(cfg); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
