package core

import (
	"context"
	"time"
)

// FilterImpl executes one registered filter kind.  inputs carries the
// primary input image first, followed by auxiliary inputs in the order they
// were applied; params has already been validated against the FilterSpec.
// Implementations live in adapters/ and must be safe for concurrent use.
type FilterImpl interface {
	Apply(ctx context.Context, inputs []*Image, params *ParameterSet) (*Image, error)
}

// FilterFunc adapts a plain function to FilterImpl.
type FilterFunc func(ctx context.Context, inputs []*Image, params *ParameterSet) (*Image, error)

func (f FilterFunc) Apply(ctx context.Context, inputs []*Image, params *ParameterSet) (*Image, error) {
	return f(ctx, inputs, params)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector receives performance observations from the renderer.
type MetricsCollector interface {
	RecordFilterTime(filter string, d time.Duration)
	RecordRender(nodes int, d time.Duration)
	RecordError(filter string)
}

// Hook is an optional observer invoked around node evaluation during a
// render.  node is a stable label of the form "filter#id".
type Hook interface {
	BeforeNode(ctx context.Context, filter, node string)
	AfterNode(ctx context.Context, filter, node string, d time.Duration, err error)
}
