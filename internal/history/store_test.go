package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"panelcast/internal/history"
	"panelcast/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, "run-1", "run", start); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	results := []history.ChapterResult{
		{Chapter: "chapter_1", State: "done", Skipped: true},
		{Chapter: "chapter_2", State: "done", Pages: 3, Synthesized: 2, Repaired: 1, Duration: 4.5, Elapsed: 1500 * time.Millisecond},
		{Chapter: "chapter_3", State: "failed", Pages: 5, ErrorCode: "E_ENCODE", Error: "encode segment_page_002: exit status 1"},
	}
	for _, result := range results {
		if err := store.RecordChapter(ctx, "run-1", result); err != nil {
			t.Fatalf("RecordChapter(%s) failed: %v", result.Chapter, err)
		}
	}
	if err := store.FinishRun(ctx, "run-1", start.Add(90*time.Second), history.Completion{
		FinalOutput:   "/out/complete_video.mp4",
		FinalDuration: 12.5,
	}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != history.RunStatusCompleted {
		t.Fatalf("expected completed status, got %q", run.Status)
	}
	if !run.Finished() || run.Elapsed() != 90*time.Second {
		t.Fatalf("unexpected timing: finished=%v elapsed=%s", run.Finished(), run.Elapsed())
	}
	if run.FinalOutput != "/out/complete_video.mp4" || run.FinalDuration != 12.5 {
		t.Fatalf("unexpected final output: %#v", run)
	}
	if len(run.Chapters) != len(results) {
		t.Fatalf("expected %d chapter results, got %d", len(results), len(run.Chapters))
	}
	if !run.Chapters[0].Skipped {
		t.Fatal("expected first chapter to be recorded as skipped")
	}
	second := run.Chapters[1]
	if second.Synthesized != 2 || second.Repaired != 1 || second.Elapsed != 1500*time.Millisecond {
		t.Fatalf("unexpected second chapter: %#v", second)
	}
	third := run.Chapters[2]
	if third.ErrorCode != "E_ENCODE" || third.State != "failed" {
		t.Fatalf("unexpected third chapter: %#v", third)
	}
}

func TestFinishRunDerivesFailedStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.StartRun(ctx, "run-err", "finalize", time.Now()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := store.FinishRun(ctx, "run-err", time.Now(), history.Completion{Err: errors.New("ffmpeg missing")}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	run, err := store.GetRun(ctx, "run-err")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != history.RunStatusFailed || run.Error != "ffmpeg missing" {
		t.Fatalf("unexpected run: %#v", run)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(ctx, id, "run", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("StartRun(%s) failed: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected runs: %#v", runs)
	}
	if runs[0].Finished() {
		t.Fatal("expected unfinished run to report running")
	}
}

func TestGetRunPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"3f2a9c10-aaaa", "3f2b0000-bbbb", "71c0ffee-cccc"} {
		if err := store.StartRun(ctx, id, "run", time.Now()); err != nil {
			t.Fatalf("StartRun(%s) failed: %v", id, err)
		}
	}

	cases := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{name: "exact", id: "71c0ffee-cccc", want: "71c0ffee-cccc"},
		{name: "unique prefix", id: "3f2a", want: "3f2a9c10-aaaa"},
		{name: "ambiguous prefix", id: "3f2", wantErr: true},
		{name: "unknown", id: "dead", wantErr: true},
		{name: "wildcards are literal", id: "%", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run, err := store.GetRun(ctx, tc.id)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got run %q", run.ID)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetRun failed: %v", err)
			}
			if run.ID != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, run.ID)
			}
		})
	}

	if _, err := store.GetRun(ctx, "dead"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestPruneCascadesChapterResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := store.StartRun(ctx, "old", "run", old); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := store.RecordChapter(ctx, "old", history.ChapterResult{Chapter: "chapter_1", State: "done"}); err != nil {
		t.Fatalf("RecordChapter failed: %v", err)
	}
	if err := store.StartRun(ctx, "new", "run", time.Now()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	removed, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	if _, err := store.GetRun(ctx, "old"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected pruned run to be gone, got %v", err)
	}
	if _, err := store.GetRun(ctx, "new"); err != nil {
		t.Fatalf("expected recent run to survive: %v", err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	store.Close()

	db, err := sql.Open("sqlite", cfg.HistoryPath())
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	db.Close()

	if _, err := history.Open(cfg); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestStartRunRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.StartRun(context.Background(), " ", "run", time.Now()); err == nil {
		t.Fatal("expected error for blank run id")
	}
}
