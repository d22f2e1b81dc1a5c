package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/tend/internal/ui/output"
	"go.trai.ch/tend/internal/ui/style"
)

// PrettyHandler is a slog.Handler producing human-readable lines. Terminal output is colored
// and marked with a glyph per level; file output is plain and stamped with time and level.
type PrettyHandler struct {
	out     *termenv.Output
	level   slog.Leveler
	stamped bool
	prefix  string
	attrs   string
}

// NewPrettyHandler creates a PrettyHandler writing to w with the terminal's color profile.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	return newPrettyHandler(output.New(w), opts, false)
}

// NewPlainHandler creates a PrettyHandler for log files: no escape sequences, and every line
// starts with an RFC 3339 timestamp and the level name.
func NewPlainHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	return newPrettyHandler(output.NewWithProfile(w, termenv.Ascii), opts, true)
}

func newPrettyHandler(out *termenv.Output, opts *slog.HandlerOptions, stamped bool) *PrettyHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyHandler{out: out, level: level, stamped: stamped}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if h.stamped {
		ts := r.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		b.WriteString(ts.UTC().Format(time.RFC3339))
		b.WriteByte(' ')
		b.WriteString(r.Level.String())
		b.WriteByte(' ')
		b.WriteString(r.Message)
	} else {
		b.WriteString(glyph(r.Level))
		b.WriteString(r.Message)
	}

	b.WriteString(h.attrs)
	r.Attrs(func(attr slog.Attr) bool {
		appendAttr(&b, h.prefix, attr)
		return true
	})

	line := b.String()
	if !h.stamped {
		line = h.out.String(line).Foreground(levelColor(r.Level)).String()
	}
	_, err := h.out.WriteString(line + "\n")
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}

	clone := *h
	clone.attrs = b.String()
	return &clone
}

// WithGroup returns a new Handler that qualifies later keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func glyph(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return style.Cross + " "
	case level >= slog.LevelWarn:
		return style.Warning + " "
	default:
		return ""
	}
}

func levelColor(level slog.Level) termenv.Color {
	switch {
	case level >= slog.LevelError:
		return termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return termenv.RGBColor(string(style.Yellow))
	default:
		return termenv.RGBColor(string(style.Slate))
	}
}

// appendAttr writes " key=value", flattening nested groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, attr slog.Attr) {
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, a := range v.Group() {
			appendAttr(b, prefix, a)
		}
		return
	}
	if attr.Equal(slog.Attr{}) {
		return
	}

	s := v.String()
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		s = strconv.Quote(s)
	}
	b.WriteByte(' ')
	b.WriteString(prefix + attr.Key + "=" + s)
}
