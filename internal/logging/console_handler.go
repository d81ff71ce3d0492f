package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders human-oriented lines: a header naming the
// component and chapter/page subject, then one "- Label: value" line per
// field. Info fields already printed for the same subject are not repeated.
type consoleHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	addSource bool
	preset    []kv
	prefix    string
}

// consoleOutput is shared by every handler derived through WithAttrs or
// WithGroup so writes stay serialized and field memory is global.
type consoleOutput struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]map[string]string
}

type kv struct {
	key   string
	value slog.Value
}

// subject is the chapter/page/stage triple shown in the console header.
type subject struct {
	chapter string
	page    string
	stage   string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &consoleOutput{w: w, seen: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append([]kv(nil), h.preset...)
	for _, attr := range attrs {
		clone.preset = appendFlattened(clone.preset, h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	attrs := make([]kv, 0, len(h.preset)+record.NumAttrs())
	attrs = append(attrs, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendFlattened(attrs, h.prefix, attr)
		return true
	})
	attrs = dedupeKVsByKey(attrs)

	component, subj, fields := splitSubject(attrs)
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	var src *slog.Source
	if h.addSource {
		src = record.Source()
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(attrs)*32)
	writeHeader(&buf, ts, record.Level, component, subj, message, src)

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if record.Level < slog.LevelInfo {
		writeDebugFields(&buf, attrs)
	} else {
		visible, hidden := selectInfoFields(fields, 0)
		visible = h.out.unseen(subj.memoryKey(component), visible, record.Level)
		writeInfoFields(&buf, visible, hidden)
	}
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

// splitSubject pulls the header attributes out of attrs. The run id is
// dropped from console output; the JSON sink keeps it.
func splitSubject(attrs []kv) (string, subject, []kv) {
	var component string
	var subj subject
	rest := make([]kv, 0, len(attrs))
	for _, a := range attrs {
		switch a.key {
		case FieldComponent:
			component = attrString(a.value)
			continue
		case FieldRunID:
			continue
		case FieldChapter:
			subj.chapter = strings.TrimSpace(attrString(a.value))
		case FieldPage:
			subj.page = strings.TrimSpace(attrString(a.value))
		case FieldStage:
			subj.stage = strings.TrimSpace(attrString(a.value))
		}
		rest = append(rest, a)
	}
	return component, subj, rest
}

// unseen drops info fields whose value was already printed for key. Warnings
// and errors always print in full but still update the memory.
func (o *consoleOutput) unseen(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	memory, ok := o.seen[key]
	if !ok {
		memory = make(map[string]string)
		o.seen[key] = memory
	}
	kept := make([]infoField, 0, len(fields))
	for _, f := range fields {
		if prev, ok := memory[f.label]; ok && prev == f.value && level <= slog.LevelInfo {
			continue
		}
		memory[f.label] = f.value
		kept = append(kept, f)
	}
	return kept
}

func writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, component string, subj subject, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if text := subj.String(); text != "" {
		buf.WriteString(" " + text)
	}
	buf.WriteString(" – " + message)
	if src != nil {
		buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
	}
	buf.WriteByte('\n')
}

func writeInfoFields(buf *bytes.Buffer, fields []infoField, hidden int) {
	for _, f := range fields {
		buf.WriteString("    - " + f.label + ": " + f.value + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}
}

func writeDebugFields(buf *bytes.Buffer, attrs []kv) {
	for _, a := range attrs {
		buf.WriteString("    " + a.key + ": " + formatValue(a.value) + "\n")
	}
}

// String renders "chapter/page (stage)", degrading to whichever parts exist.
func (s subject) String() string {
	text := s.chapter
	if s.page != "" {
		if text != "" {
			text += "/"
		}
		text += s.page
	}
	switch {
	case s.stage == "":
	case text == "":
		text = s.stage
	default:
		text += " (" + s.stage + ")"
	}
	return text
}

// memoryKey groups repeated-field suppression by page, then chapter, then
// component.
func (s subject) memoryKey(component string) string {
	switch {
	case s.chapter != "" && s.page != "":
		return s.chapter + "/" + s.page
	case s.chapter != "":
		return s.chapter
	default:
		return component
	}
}

func appendFlattened(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = joinKey(prefix, attr.Key)
		}
		for _, member := range value.Group() {
			dst = appendFlattened(dst, groupPrefix, member)
		}
		return dst
	}
	key := joinKey(prefix, attr.Key)
	if key == "" {
		return dst
	}
	return append(dst, kv{key: key, value: value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
