package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	prevLevel := Level()
	SetLevel(slog.LevelDebug)
	SetLogger(NewText(&buf))
	defer func() {
		SetLevel(prevLevel)
		SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	}()

	Debug(DMA, "mux allocated", "input", 3)
	out := buf.String()
	if !strings.Contains(out, "component=dma") || !strings.Contains(out, "input=3") {
		t.Fatalf("unexpected log line: %q", out)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	prevLevel := Level()
	SetLevel(slog.LevelWarn)
	SetLogger(NewText(&buf))
	defer SetLevel(prevLevel)

	Info(Slot, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	Warn(Slot, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatal("warn line missing")
	}
}
