package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// ANSI color codes
const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiWhite   = "\033[37m"
	ansiGray    = "\033[90m"
)

// ColorHandler implements a colorized text handler for slog.
// Sensitive attribute values (bearer tokens, api keys) are masked before output.
type ColorHandler struct {
	opts     *slog.HandlerOptions
	writer   io.Writer
	attrs    []slog.Attr
	groups   []string
	masker   *Masker
	useColor bool
}

// NewColorHandler creates a new color handler
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{
		opts:     opts,
		writer:   w,
		useColor: shouldUseColor(w),
		masker:   NewMasker(),
	}
}

// shouldUseColor determines if colors should be used based on the output
func shouldUseColor(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the record
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)

	if !r.Time.IsZero() {
		buf = append(buf, h.colorize(ansiGray, r.Time.Format(time.RFC3339))...)
		buf = append(buf, ' ')
	}

	buf = append(buf, h.formatLevel(r.Level)...)
	buf = append(buf, ' ')

	if len(h.groups) > 0 {
		buf = append(buf, h.colorize(ansiCyan, "["+strings.Join(h.groups, ".")+"]")...)
		buf = append(buf, ' ')
	}

	buf = append(buf, h.colorize(ansiWhite, r.Message)...)

	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	for _, attr := range attrs {
		buf = append(buf, ' ')
		buf = append(buf, h.colorize(ansiCyan, attr.Key)...)
		buf = append(buf, '=')
		masked := h.masker.MaskValue(attr.Key, attr.Value.Any())
		buf = append(buf, h.formatValue(attr.Value, masked)...)
	}

	buf = append(buf, '\n')
	_, err := h.writer.Write(buf)
	return err
}

// formatLevel formats the log level with appropriate colors
func (h *ColorHandler) formatLevel(level slog.Level) string {
	var color, levelStr string
	switch level {
	case slog.LevelDebug:
		color, levelStr = ansiGray, "DEBUG"
	case slog.LevelInfo:
		color, levelStr = ansiGreen, "INFO "
	case slog.LevelWarn:
		color, levelStr = ansiYellow, "WARN "
	case slog.LevelError:
		color, levelStr = ansiRed, "ERROR"
	default:
		color, levelStr = ansiWhite, level.String()
	}
	return h.colorize(color, "["+levelStr+"]")
}

// formatValue renders a single attribute value; masked holds the post-masking
// form for string-like values.
func (h *ColorHandler) formatValue(v slog.Value, masked interface{}) string {
	switch v.Kind() {
	case slog.KindString:
		s, _ := masked.(string)
		return h.colorize(ansiWhite, fmt.Sprintf("%q", s))
	case slog.KindInt64:
		return h.colorize(ansiMagenta, fmt.Sprintf("%d", v.Int64()))
	case slog.KindFloat64:
		return h.colorize(ansiMagenta, fmt.Sprintf("%g", v.Float64()))
	case slog.KindBool:
		if v.Bool() {
			return h.colorize(ansiGreen, "true")
		}
		return h.colorize(ansiRed, "false")
	case slog.KindDuration:
		return h.colorize(ansiYellow, v.Duration().String())
	case slog.KindTime:
		return h.colorize(ansiGray, v.Time().Format(time.RFC3339))
	default:
		return h.colorize(ansiWhite, h.masker.MaskString(v.String()))
	}
}

// colorize wraps text with color codes when enabled
func (h *ColorHandler) colorize(color, text string) string {
	if !h.useColor {
		return text
	}
	return color + text + ansiReset
}

// WithAttrs returns a new handler with the given attributes added
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup returns a new handler with the given group name added
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.groups = append(append([]string{}, h.groups...), name)
	return &nh
}
