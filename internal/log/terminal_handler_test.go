package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func handleRecord(t *testing.T, h slog.Handler, r slog.Record) string {
	t.Helper()
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if th, ok := h.(*TerminalHandler); ok {
		if buf, ok := th.out.(*bytes.Buffer); ok {
			return buf.String()
		}
	}
	t.Fatal("handler not backed by a buffer")
	return ""
}

func TestTerminalHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	ts := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "server started", 0)
	r.AddAttrs(slog.String("port", "8714"))

	output := handleRecord(t, h, r)

	for _, want := range []string{"10:30:45.123", "INF", "server started", "port=", "8714", ansiBold, ansiReset} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("expected a trailing newline")
	}
}

func TestTerminalHandler_Badges(t *testing.T) {
	tests := []struct {
		level slog.Level
		badge string
		color string
	}{
		{slog.LevelDebug, "DBG", ansiCyan},
		{slog.LevelInfo, "INF", ansiGreen},
		{slog.LevelWarn, "WRN", ansiYellow},
		{slog.LevelError, "ERR", ansiRed},
	}

	for _, tt := range tests {
		t.Run(tt.badge, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

			r := slog.NewRecord(time.Now(), tt.level, "msg", 0)
			output := handleRecord(t, h, r)

			if !strings.Contains(output, tt.color+tt.badge+ansiReset) {
				t.Errorf("expected %s badge in %s, got: %s", tt.badge, tt.color, output)
			}
		})
	}
}

func TestTerminalHandler_AttrRendering(t *testing.T) {
	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"bare string", slog.String("city", "Osaka"), "city=" + ansiReset + "Osaka"},
		{"string with spaces quoted", slog.String("name", "Kansai International"), `"Kansai International"`},
		{"empty string quoted", slog.String("alias", ""), `alias=` + ansiReset + `""`},
		{"error value in red", slog.String("error", "timeout"), ansiRed + "timeout" + ansiReset},
		{"int", slog.Int("status", 201), "status=" + ansiReset + "201"},
		{"time rfc3339", slog.Time("started", when), "2026-03-01T09:00:00Z"},
		{"duration", slog.Duration("took", 1500*time.Millisecond), "took=" + ansiReset + "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

			r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
			r.AddAttrs(tt.attr)
			output := handleRecord(t, h, r)

			if !strings.Contains(output, tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, output)
			}
		})
	}
}

func TestTerminalHandler_GroupPrefixes(t *testing.T) {
	t.Run("WithGroup", func(t *testing.T) {
		var buf bytes.Buffer
		h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

		r := slog.NewRecord(time.Now(), slog.LevelInfo, "request", 0)
		r.AddAttrs(slog.String("method", "GET"))

		if err := h.WithGroup("http").Handle(context.Background(), r); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if !strings.Contains(buf.String(), "http.method=") {
			t.Errorf("expected http.method prefix, got: %s", buf.String())
		}
	})

	t.Run("inline group attr", func(t *testing.T) {
		var buf bytes.Buffer
		h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

		r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
		r.AddAttrs(slog.Group("request",
			slog.String("method", "POST"),
			slog.Int("status", 201),
		))
		output := handleRecord(t, h, r)

		if !strings.Contains(output, "request.method=") || !strings.Contains(output, "request.status=") {
			t.Errorf("expected request.* prefixes, got: %s", output)
		}
	})

	t.Run("empty name is a no-op", func(t *testing.T) {
		h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
		if h.WithGroup("") != h {
			t.Error("WithGroup(\"\") should return the same handler")
		}
	})
}

func TestTerminalHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "api")})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.Int("status", 200))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "component=") || !strings.Contains(output, "api") {
		t.Errorf("expected the bound component attr, got: %s", output)
	}
	if !strings.Contains(output, "status=") {
		t.Errorf("expected the record attr, got: %s", output)
	}

	// The original handler must not pick up the bound attr.
	buf.Reset()
	r2 := slog.NewRecord(time.Now(), slog.LevelInfo, "plain", 0)
	if err := h.Handle(context.Background(), r2); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if strings.Contains(buf.String(), "component=") {
		t.Errorf("original handler leaked bound attrs: %s", buf.String())
	}
}

func TestTerminalHandler_LevelGate(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	gates := []struct {
		level   slog.Level
		enabled bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, g := range gates {
		if got := h.Enabled(context.Background(), g.level); got != g.enabled {
			t.Errorf("Enabled(%v) = %v, want %v", g.level, got, g.enabled)
		}
	}

	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines at WARN, got %d: %s", len(lines), buf.String())
	}
}

func TestTerminalHandler_DefaultLevel(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, nil)

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("default level should be INFO")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG should be disabled at the default level")
	}
}
