package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Pipeline failure taxonomy. Each marker implies how far a failure reaches;
// see Scope.
var (
	ErrProbeUnavailable        = errors.New("probe unavailable")
	ErrProbeTimeout            = errors.New("probe timeout")
	ErrProbeParse              = errors.New("probe parse failure")
	ErrInvalidAudio            = errors.New("invalid audio")
	ErrEncodeFailure           = errors.New("encode failure")
	ErrAudioMissingAfterRepair = errors.New("audio missing after repair")
	ErrConcatVerification      = errors.New("concat verification failure")
	ErrFinalProcess            = errors.New("final process failure")
)

// FailureScope describes how far a failure propagates.
type FailureScope string

const (
	// ScopeDegrade failures substitute defaults and continue.
	ScopeDegrade FailureScope = "degrade"
	// ScopeChapter failures fail the owning chapter; other chapters continue.
	ScopeChapter FailureScope = "chapter"
	// ScopeRun failures abort the whole run.
	ScopeRun FailureScope = "run"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Scope maps an error to the reach of its failure. Unclassified errors are
// treated as run-fatal so nothing is swallowed.
func Scope(err error) FailureScope {
	switch {
	case err == nil:
		return ScopeDegrade
	case errors.Is(err, ErrProbeUnavailable),
		errors.Is(err, ErrFinalProcess),
		errors.Is(err, ErrConfiguration):
		return ScopeRun
	case errors.Is(err, ErrEncodeFailure),
		errors.Is(err, ErrAudioMissingAfterRepair),
		errors.Is(err, ErrConcatVerification):
		return ScopeChapter
	case errors.Is(err, ErrProbeTimeout),
		errors.Is(err, ErrProbeParse),
		errors.Is(err, ErrInvalidAudio):
		return ScopeDegrade
	default:
		return ScopeRun
	}
}

// ErrorCode returns a short stable identifier for the taxonomy marker carried
// by err, used in history rows and log fields.
func ErrorCode(err error) string {
	for _, entry := range []struct {
		marker error
		code   string
	}{
		{ErrProbeUnavailable, "probe_unavailable"},
		{ErrProbeTimeout, "probe_timeout"},
		{ErrProbeParse, "probe_parse"},
		{ErrInvalidAudio, "invalid_audio"},
		{ErrEncodeFailure, "encode_failure"},
		{ErrAudioMissingAfterRepair, "audio_missing_after_repair"},
		{ErrConcatVerification, "concat_verification"},
		{ErrFinalProcess, "final_process"},
		{ErrConfiguration, "configuration"},
		{ErrValidation, "validation"},
		{ErrNotFound, "not_found"},
		{ErrTimeout, "timeout"},
		{ErrExternalTool, "external_tool"},
	} {
		if errors.Is(err, entry.marker) {
			return entry.code
		}
	}
	if err == nil {
		return ""
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
