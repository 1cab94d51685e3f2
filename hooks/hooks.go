// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dkovalov/filter-graph/core"
)

// ── Structured logger adapters ────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// LogrusLogger wraps a logrus.Logger to satisfy core.Logger.
type LogrusLogger struct {
	log *logrus.Logger
}

// NewLogrusLogger creates a logger backed by logrus.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger { return &LogrusLogger{log: l} }

func (s *LogrusLogger) Debug(msg string, fields ...interface{}) {
	s.log.WithFields(toLogrusFields(fields)).Debug(msg)
}
func (s *LogrusLogger) Info(msg string, fields ...interface{}) {
	s.log.WithFields(toLogrusFields(fields)).Info(msg)
}
func (s *LogrusLogger) Warn(msg string, fields ...interface{}) {
	s.log.WithFields(toLogrusFields(fields)).Warn(msg)
}
func (s *LogrusLogger) Error(msg string, fields ...interface{}) {
	s.log.WithFields(toLogrusFields(fields)).Error(msg)
}

// toLogrusFields converts alternating key/value pairs into logrus fields.
func toLogrusFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return fields
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each node evaluation.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeNode(_ context.Context, filter, node string) {
	h.logger.Debug("render.node.start", "filter", filter, "node", node)
}

func (h *LoggingHook) AfterNode(_ context.Context, filter, node string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("render.node.error",
			"filter", filter,
			"node", node,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("render.node.done",
		"filter", filter,
		"node", node,
		"duration_ms", d.Milliseconds(),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	filterDurationsMs map[string]int64 // cumulative ms per filter
	filterCalls       map[string]int64
	filterErrors      map[string]int64

	renderCount int64
	nodeCount   int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		filterDurationsMs: make(map[string]int64),
		filterCalls:       make(map[string]int64),
		filterErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordFilterTime(filter string, d time.Duration) {
	m.mu.Lock()
	m.filterDurationsMs[filter] += d.Milliseconds()
	m.filterCalls[filter]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordRender(nodes int, _ time.Duration) {
	atomic.AddInt64(&m.renderCount, 1)
	atomic.AddInt64(&m.nodeCount, int64(nodes))
}

func (m *InMemoryMetrics) RecordError(filter string) {
	m.mu.Lock()
	m.filterErrors[filter]++
	m.mu.Unlock()
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	FilterDurationsMs map[string]int64
	FilterCalls       map[string]int64
	FilterErrors      map[string]int64
	RenderCount       int64
	NodeCount         int64
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		FilterDurationsMs: make(map[string]int64, len(m.filterDurationsMs)),
		FilterCalls:       make(map[string]int64, len(m.filterCalls)),
		FilterErrors:      make(map[string]int64, len(m.filterErrors)),
		RenderCount:       atomic.LoadInt64(&m.renderCount),
		NodeCount:         atomic.LoadInt64(&m.nodeCount),
	}
	for k, v := range m.filterDurationsMs {
		snap.FilterDurationsMs[k] = v
	}
	for k, v := range m.filterCalls {
		snap.FilterCalls[k] = v
	}
	for k, v := range m.filterErrors {
		snap.FilterErrors[k] = v
	}
	return snap
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds node evaluation events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeNode(_ context.Context, _, _ string) {}

func (h *MetricsHook) AfterNode(_ context.Context, filter, _ string, d time.Duration, err error) {
	h.collector.RecordFilterTime(filter, d)
	if err != nil {
		h.collector.RecordError(filter)
	}
}
