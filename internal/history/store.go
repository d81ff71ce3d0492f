package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"panelcast/internal/config"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrRunNotFound is returned when a run ID has no ledger entry.
var ErrRunNotFound = errors.New("run not found")

// Open initializes or connects to the ledger at cfg.HistoryPath().
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens a ledger at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records a new run in the running state.
func (s *Store) StartRun(ctx context.Context, runID, command string, startedAt time.Time) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("start run: run id required")
	}
	return s.exec(ctx,
		`INSERT INTO runs (run_id, command, started_at, status) VALUES (?, ?, ?, ?)`,
		runID, command, formatTime(startedAt), RunStatusRunning,
	)
}

// RecordChapter appends a chapter outcome to a run.
func (s *Store) RecordChapter(ctx context.Context, runID string, result ChapterResult) error {
	recorded := result.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	return s.exec(ctx,
		`INSERT INTO chapter_results (
            run_id, chapter, state, skipped, pages, synthesized, repaired,
            duration, elapsed_ms, error_code, error, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Chapter,
		result.State,
		boolToInt(result.Skipped),
		result.Pages,
		result.Synthesized,
		result.Repaired,
		result.Duration,
		result.Elapsed.Milliseconds(),
		nullableString(result.ErrorCode),
		nullableString(result.Error),
		formatTime(recorded),
	)
}

// FinishRun stamps the run with its terminal status.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, done Completion) error {
	status := done.Status
	if status == "" {
		status = RunStatusCompleted
		if done.Err != nil {
			status = RunStatusFailed
		}
	}
	var errText string
	if done.Err != nil {
		errText = done.Err.Error()
	}
	return s.exec(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, final_output = ?, final_duration = ?, error = ?
         WHERE run_id = ?`,
		formatTime(finishedAt),
		status,
		nullableString(done.FinalOutput),
		done.FinalDuration,
		nullableString(errText),
		runID,
	)
}

// ListRuns returns the most recent runs first, without chapter detail.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run and its chapter results. A unique prefix of the run ID
// is accepted.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return Run{}, ErrRunNotFound
	}
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		run, err = s.runByPrefix(ctx, runID)
	}
	if err != nil {
		return Run{}, err
	}

	chapters, err := s.chapterResults(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Chapters = chapters
	return run, nil
}

func (s *Store) runByPrefix(ctx context.Context, prefix string) (Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id LIKE ? LIMIT 2`, likePrefix(prefix))
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

func (s *Store) chapterResults(ctx context.Context, runID string) ([]ChapterResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter, state, skipped, pages, synthesized, repaired, duration, elapsed_ms,
                error_code, error, recorded_at
         FROM chapter_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list chapter results: %w", err)
	}
	defer rows.Close()

	var results []ChapterResult
	for rows.Next() {
		var (
			result    ChapterResult
			skipped   int
			elapsedMS int64
			errorCode sql.NullString
			errText   sql.NullString
			recorded  string
		)
		if err := rows.Scan(
			&result.Chapter,
			&result.State,
			&skipped,
			&result.Pages,
			&result.Synthesized,
			&result.Repaired,
			&result.Duration,
			&elapsedMS,
			&errorCode,
			&errText,
			&recorded,
		); err != nil {
			return nil, fmt.Errorf("scan chapter result: %w", err)
		}
		result.Skipped = skipped != 0
		result.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		result.ErrorCode = errorCode.String
		result.Error = errText.String
		result.RecordedAt = parseTime(recorded)
		results = append(results, result)
	}
	return results, rows.Err()
}

// Prune deletes runs started before cutoff along with their chapter results.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
