package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// TerminalHandler renders records as single-line coloured output for
// interactive use:
//
//	15:04:05.000 INF catalog seeded airports=7698 duration=2.1s
//
// Values under the "error" key are highlighted so pipeline failures stand
// out in a scrolling seed run.
type TerminalHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // dotted group path, e.g. "http."
}

func newTerminalHandler(w io.Writer, opts *slog.HandlerOptions) *TerminalHandler {
	h := &TerminalHandler{
		out:   w,
		mu:    &sync.Mutex{},
		level: slog.LevelInfo,
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *TerminalHandler) clone() *TerminalHandler {
	return &TerminalHandler{
		out:    h.out,
		mu:     h.mu, // shared so clones serialize writes
		level:  h.level,
		attrs:  h.attrs,
		prefix: h.prefix,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle renders the record and writes it as one line.
func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256)

	h.writeHeader(&buf, r)
	for _, a := range h.attrs {
		h.appendAttr(&buf, a, h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, a, h.prefix)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *TerminalHandler) writeHeader(buf *bytes.Buffer, r slog.Record) {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(buf, "%s%s%s ", ansiDim, ts.Format("15:04:05.000"), ansiReset)

	color, badge := levelBadge(r.Level)
	fmt.Fprintf(buf, "%s%s%s ", color, badge, ansiReset)

	fmt.Fprintf(buf, "%s%s%s", ansiBold, r.Message, ansiReset)
}

// WithAttrs returns a new handler whose attributes consist of both the
// existing attributes and attrs.
func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	next.attrs = append(next.attrs, attrs...)
	return next
}

// WithGroup returns a new handler that prefixes subsequent attribute keys
// with the group name.
func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func levelBadge(level slog.Level) (color, badge string) {
	switch {
	case level < slog.LevelInfo:
		return ansiCyan, "DBG"
	case level < slog.LevelWarn:
		return ansiGreen, "INF"
	case level < slog.LevelError:
		return ansiYellow, "WRN"
	default:
		return ansiRed, "ERR"
	}
}

func (h *TerminalHandler) appendAttr(buf *bytes.Buffer, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = p + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, ga, p)
		}
		return
	}

	fmt.Fprintf(buf, " %s%s%s=%s", ansiDim, prefix, a.Key, ansiReset)
	if a.Key == "error" {
		fmt.Fprintf(buf, "%s%s%s", ansiRed, formatValue(a.Value), ansiReset)
		return
	}
	buf.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"\\") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}
