package logging

import (
	"context"
	"log/slog"

	"panelcast/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one pipeline invocation.
	FieldRunID = "run_id"
	// FieldChapter is the chapter directory name being assembled.
	FieldChapter = "chapter"
	// FieldPage is the page base name (image file name without extension).
	FieldPage = "page"
	// FieldStage is the pipeline stage name.
	FieldStage = "stage"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorCode carries services.ErrorCode for failed operations.
	FieldErrorCode = "error_code"

	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"

	FieldProgressPercent = "progress_percent"
	FieldProgressStage   = "progress_stage"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if chapter, ok := services.ChapterFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldChapter, chapter))
	}
	if page, ok := services.PageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPage, page))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
