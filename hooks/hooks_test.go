package hooks_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dkovalov/filter-graph/hooks"
)

func TestInMemoryMetrics_Snapshot(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	m.RecordFilterTime("gaussianBlur", 5*time.Millisecond)
	m.RecordFilterTime("gaussianBlur", 7*time.Millisecond)
	m.RecordFilterTime("grayscale", 2*time.Millisecond)
	m.RecordError("grayscale")
	m.RecordRender(4, 20*time.Millisecond)

	snap := m.Snapshot()
	if snap.FilterCalls["gaussianBlur"] != 2 {
		t.Fatalf("gaussianBlur calls = %d, want 2", snap.FilterCalls["gaussianBlur"])
	}
	if snap.FilterDurationsMs["gaussianBlur"] != 12 {
		t.Fatalf("gaussianBlur ms = %d, want 12", snap.FilterDurationsMs["gaussianBlur"])
	}
	if snap.FilterErrors["grayscale"] != 1 {
		t.Fatalf("grayscale errors = %d", snap.FilterErrors["grayscale"])
	}
	if snap.RenderCount != 1 || snap.NodeCount != 4 {
		t.Fatalf("render/node = %d/%d, want 1/4", snap.RenderCount, snap.NodeCount)
	}

	// Snapshot is a copy, not a view.
	snap.FilterCalls["gaussianBlur"] = 99
	if m.Snapshot().FilterCalls["gaussianBlur"] != 2 {
		t.Fatal("mutating a snapshot leaked into the collector")
	}
}

func TestInMemoryMetrics_Concurrent(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordFilterTime("tint", time.Millisecond)
				m.RecordRender(1, time.Millisecond)
			}
		}()
	}
	wg.Wait()
	snap := m.Snapshot()
	if snap.FilterCalls["tint"] != 800 || snap.RenderCount != 800 {
		t.Fatalf("calls/renders = %d/%d, want 800/800", snap.FilterCalls["tint"], snap.RenderCount)
	}
}

func TestMetricsHook_RecordsErrors(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	h := hooks.NewMetricsHook(m)
	ctx := context.Background()

	h.BeforeNode(ctx, "crop", "crop#1")
	h.AfterNode(ctx, "crop", "crop#1", time.Millisecond, nil)
	h.AfterNode(ctx, "crop", "crop#2", time.Millisecond, errors.New("bad rect"))

	snap := m.Snapshot()
	if snap.FilterCalls["crop"] != 2 {
		t.Fatalf("crop calls = %d, want 2", snap.FilterCalls["crop"])
	}
	if snap.FilterErrors["crop"] != 1 {
		t.Fatalf("crop errors = %d, want 1", snap.FilterErrors["crop"])
	}
}

func TestLoggingHook_EmitsNodeEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	h := hooks.NewLoggingHook(logger)
	ctx := context.Background()

	h.BeforeNode(ctx, "sepiaTone", "sepiaTone#3")
	h.AfterNode(ctx, "sepiaTone", "sepiaTone#3", 2*time.Millisecond, nil)
	h.AfterNode(ctx, "sepiaTone", "sepiaTone#4", time.Millisecond, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"render.node.start", "render.node.done", "render.node.error", "sepiaTone#3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogrusLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.JSONFormatter{})

	l := hooks.NewLogrusLogger(base)
	l.Info("render.done", "nodes", 3, "extent", "(0,0)-(64,48)")

	out := buf.String()
	if !strings.Contains(out, `"nodes":3`) || !strings.Contains(out, "render.done") {
		t.Fatalf("unexpected logrus output: %s", out)
	}
}
