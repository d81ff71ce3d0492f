package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const runColumns = "run_id, command, started_at, finished_at, status, final_output, final_duration, error"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run           Run
		startedRaw    string
		finishedRaw   sql.NullString
		status        string
		finalOutput   sql.NullString
		finalDuration sql.NullFloat64
		errText       sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Command,
		&startedRaw,
		&finishedRaw,
		&status,
		&finalOutput,
		&finalDuration,
		&errText,
	); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Status = RunStatus(status)
	run.FinalOutput = finalOutput.String
	run.FinalDuration = finalDuration.Float64
	run.Error = errText.String
	return run, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// likePrefix builds a LIKE pattern matching value as a literal prefix.
func likePrefix(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value) + "%"
}
