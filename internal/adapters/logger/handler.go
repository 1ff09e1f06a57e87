package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

// PrettyHandler is a slog.Handler that produces human-readable, coloured output.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a new PrettyHandler writing to the provided writer.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: levelOf(opts),
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var msg string
	var color termenv.Color

	switch r.Level {
	case slog.LevelWarn:
		msg = style.Warning + " " + r.Message
		color = termenv.RGBColor(string(style.Yellow))
	case slog.LevelError:
		msg = style.Cross + " " + r.Message
		color = termenv.RGBColor(string(style.Red))
	default:
		msg = r.Message
		color = termenv.RGBColor(string(style.Slate))
	}

	if attrs := joinAttrs(h.group, h.attrs, r); attrs != "" {
		msg += " " + attrs
	}

	styled := h.out.String(msg).Foreground(color)
	_, err := h.out.WriteString(styled.String() + "\n")

	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: appendAttrs(h.attrs, attrs),
		group: h.group,
	}
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: h.attrs,
		group: name,
	}
}

// SinkHandler writes records as plain "LEVEL message" lines, one write per line,
// so a timestamping sink stamps every line of a multi-line message.
type SinkHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewSinkHandler creates a SinkHandler writing to w.
func NewSinkHandler(w io.Writer, opts *slog.HandlerOptions) *SinkHandler {
	return &SinkHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: levelOf(opts),
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *SinkHandler) Handle(_ context.Context, r slog.Record) error {
	label := r.Level.String()
	msg := r.Message
	if attrs := joinAttrs(h.group, h.attrs, r); attrs != "" {
		msg += " " + attrs
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, line := range strings.Split(msg, "\n") {
		if _, err := io.WriteString(h.w, padLevel(label)+" "+line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SinkHandler{mu: h.mu, w: h.w, level: h.level, attrs: appendAttrs(h.attrs, attrs), group: h.group}
}

// WithGroup returns a new Handler with the given group name.
func (h *SinkHandler) WithGroup(name string) slog.Handler {
	return &SinkHandler{mu: h.mu, w: h.w, level: h.level, attrs: h.attrs, group: name}
}

// fanoutHandler dispatches every record to all of its handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = errors.Join(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errs
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

func levelOf(opts *slog.HandlerOptions) slog.Leveler {
	level := slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level.Level()
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)
	return levelVar
}

func appendAttrs(base, extra []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(base)+len(extra))
	copy(out, base)
	copy(out[len(base):], extra)
	return out
}

//nolint:gocritic // slog.Record is passed by value throughout slog
func joinAttrs(group string, handlerAttrs []slog.Attr, r slog.Record) string {
	parts := make([]string, 0, len(handlerAttrs)+r.NumAttrs())
	for _, attr := range handlerAttrs {
		parts = append(parts, formatAttr(group, attr))
	}
	r.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, formatAttr(group, attr))
		return true
	})
	return strings.Join(parts, " ")
}

// formatAttr formats a single attribute for output.
// If a group is set, the key is prefixed with the group name.
func formatAttr(group string, attr slog.Attr) string {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	return key + "=" + attr.Value.String()
}

func padLevel(label string) string {
	const width = 5
	if len(label) >= width {
		return label
	}
	return label + strings.Repeat(" ", width-len(label))
}
