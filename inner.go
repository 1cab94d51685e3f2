package filtergraph

import "github.com/dkovalov/filter-graph/render"

// Renderer exposes the underlying renderer for advanced use (e.g., direct
// hook wiring in tests).  Prefer the high-level API for normal usage.
func (e *Engine) Renderer() *render.Renderer { return e.renderer }
