package standardize

import (
	"fmt"
	"math"

	"panelcast/internal/config"
	"panelcast/internal/media/ffprobe"
)

// SyncTolerance is the largest container/audio duration gap accepted as in sync.
const SyncTolerance = 0.1

// fpsTolerance absorbs rational frame rates such as 59.94 vs 60 rounding.
const fpsTolerance = 0.1

// IssueKind names a mismatch against the VideoSpec.
type IssueKind string

const (
	IssueNoAudio    IssueKind = "no_audio"
	IssueSync       IssueKind = "sync"
	IssueResolution IssueKind = "resolution"
	IssueFPS        IssueKind = "fps"
	IssueSampleRate IssueKind = "sample_rate"
	IssueChannels   IssueKind = "channels"
	IssueUnreadable IssueKind = "unreadable"
)

// Issue is one mismatch between a probed file and the VideoSpec.
type Issue struct {
	Kind IssueKind
	// Observed is the file's value, rendered for display.
	Observed string
	// Target is the VideoSpec value, empty where it does not apply.
	Target string
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueNoAudio:
		return "No audio"
	case IssueSync:
		return fmt.Sprintf("A/V sync issue (%ss)", i.Observed)
	case IssueResolution:
		return "Resolution: " + i.Observed
	case IssueFPS:
		return "FPS: " + i.Observed
	case IssueSampleRate:
		return "Sample rate: " + i.Observed + "Hz"
	case IssueChannels:
		return "Channels: " + i.Observed
	case IssueUnreadable:
		return "Failed to analyze"
	default:
		return string(i.Kind)
	}
}

// Reason renders the issue as a standardization reason, naming the target.
func (i Issue) Reason() string {
	switch i.Kind {
	case IssueNoAudio:
		return "missing audio"
	case IssueSync:
		return fmt.Sprintf("audio sync issue (A/V duration diff: %ss)", i.Observed)
	case IssueResolution:
		return fmt.Sprintf("resolution (%s -> %s)", i.Observed, i.Target)
	case IssueFPS:
		return fmt.Sprintf("fps (%s -> %s)", i.Observed, i.Target)
	case IssueSampleRate:
		return fmt.Sprintf("sample rate (%sHz -> %sHz)", i.Observed, i.Target)
	case IssueChannels:
		return fmt.Sprintf("channels (%s -> %s)", i.Observed, i.Target)
	default:
		return i.String()
	}
}

// Analyze lists every way info differs from spec. An empty result means the
// file can be concatenated as-is.
func Analyze(info ffprobe.MediaInfo, spec config.VideoSpec) []Issue {
	if !info.HasVideo && !info.HasAudio {
		return []Issue{{Kind: IssueUnreadable}}
	}
	var issues []Issue

	if !info.HasAudio {
		issues = append(issues, Issue{Kind: IssueNoAudio})
	} else if delta, ok := info.SyncDelta(); ok && delta > SyncTolerance {
		issues = append(issues, Issue{Kind: IssueSync, Observed: fmt.Sprintf("%.3f", delta), Target: fmt.Sprintf("%.3f", SyncTolerance)})
	}
	if info.Width != spec.Width || info.Height != spec.Height {
		issues = append(issues, Issue{Kind: IssueResolution, Observed: info.Resolution(), Target: fmt.Sprintf("%dx%d", spec.Width, spec.Height)})
	}
	if math.Abs(info.FPS-float64(spec.FPS)) > fpsTolerance {
		issues = append(issues, Issue{Kind: IssueFPS, Observed: fmt.Sprintf("%.1f", info.FPS), Target: fmt.Sprint(spec.FPS)})
	}
	if info.HasAudio {
		if info.SampleRate != spec.SampleRate {
			issues = append(issues, Issue{Kind: IssueSampleRate, Observed: fmt.Sprint(info.SampleRate), Target: fmt.Sprint(spec.SampleRate)})
		}
		if info.Channels != spec.Channels {
			issues = append(issues, Issue{Kind: IssueChannels, Observed: fmt.Sprint(info.Channels), Target: fmt.Sprint(spec.Channels)})
		}
	}
	return issues
}

// Reasons renders issues as standardization reasons.
func Reasons(issues []Issue) []string {
	reasons := make([]string, 0, len(issues))
	for _, issue := range issues {
		reasons = append(reasons, issue.Reason())
	}
	return reasons
}

// Strings renders issues for the analysis report.
func Strings(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.String())
	}
	return out
}
