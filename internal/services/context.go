package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	chapterKey contextKey = "chapter"
	stageKey   contextKey = "stage"
	pageKey    contextKey = "page"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChapter annotates context with the chapter name being processed.
func WithChapter(ctx context.Context, chapter string) context.Context {
	if chapter == "" {
		return ctx
	}
	return context.WithValue(ctx, chapterKey, chapter)
}

// ChapterFromContext returns the chapter name if present.
func ChapterFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(chapterKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithPage annotates context with the page base name.
func WithPage(ctx context.Context, page string) context.Context {
	if page == "" {
		return ctx
	}
	return context.WithValue(ctx, pageKey, page)
}

// PageFromContext returns the page base name if present.
func PageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
