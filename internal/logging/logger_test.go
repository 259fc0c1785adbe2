package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("classification completed",
		String(FieldEntitySet, "task-rest_suffix-bold"),
		Int("groups", 2),
	)

	out := buf.String()
	if !strings.Contains(out, "INF classification completed") {
		t.Fatalf("missing level/message: %q", out)
	}
	if !strings.Contains(out, "entity_set=task-rest_suffix-bold") {
		t.Fatalf("missing entity_set attr: %q", out)
	}
	if !strings.Contains(out, "groups=2") {
		t.Fatalf("missing groups attr: %q", out)
	}
}

func TestConsoleHandlerQuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("sparse field", String("detail", "present on 2 of 3"))
	if !strings.Contains(buf.String(), `detail="present on 2 of 3"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("bogus"); got != slog.LevelInfo {
		t.Fatalf("parseLevel(bogus) = %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("parseLevel(debug) = %v", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
