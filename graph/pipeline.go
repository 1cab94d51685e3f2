package graph

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
)

// nodeSeq hands out process-unique node ids so labels stay stable even when
// pipelines are merged through auxiliary inputs.
var nodeSeq atomic.Int64

func nextNodeID() int { return int(nodeSeq.Add(1)) }

// Pipeline is an ordered build record wrapping the terminal node plus the
// full reachable node set, kept in dependency order.  Pipelines are
// persistent: Apply returns a new Pipeline sharing prior nodes structurally,
// so earlier values stay valid after extension.  A node can only reference
// nodes that already exist, which makes cycles structurally impossible.
type Pipeline struct {
	reg      *core.Registry
	terminal *Node
	nodes    []*Node
}

// From creates the initial pipeline for a source image.  Validation at Apply
// time is eager, so the pipeline carries the registry it validates against.
func From(reg *core.Registry, img *core.Image) (*Pipeline, error) {
	if reg == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "graph.from",
			fmt.Errorf("nil registry"))
	}
	if img == nil || img.Pix == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "graph.from", apperrors.ErrNilImage)
	}
	src := &Node{id: nextNodeID(), kind: KindSource, source: img}
	return &Pipeline{reg: reg, terminal: src, nodes: []*Node{src}}, nil
}

// FromImage is From for a plain decoded pixel buffer.
func FromImage(reg *core.Registry, pix image.Image) (*Pipeline, error) {
	if pix == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "graph.from", apperrors.ErrNilImage)
	}
	return From(reg, core.NewImage(pix))
}

// Apply builds a new node whose primary input is the current terminal node
// and whose auxiliary inputs are the terminal nodes of aux (for blend,
// composite, and mask filters that take further images).  Unknown filters
// and schema violations fail here, at construction time; the receiver is
// left unchanged and remains usable.
func (p *Pipeline) Apply(name string, params core.Params, aux ...*Pipeline) (*Pipeline, error) {
	spec, err := p.reg.Spec(name)
	if err != nil {
		return nil, err
	}
	if len(aux) != spec.AuxInputs {
		return nil, &apperrors.ValidationError{
			Filter: name,
			Reason: fmt.Sprintf("want %d auxiliary input(s), got %d", spec.AuxInputs, len(aux)),
		}
	}
	for _, a := range aux {
		if a == nil {
			return nil, &apperrors.ValidationError{Filter: name, Reason: "nil auxiliary pipeline"}
		}
		if a.reg != p.reg {
			return nil, &apperrors.ValidationError{
				Filter: name,
				Reason: "auxiliary pipeline built against a different registry",
			}
		}
	}

	ps, err := core.BuildParams(spec, params)
	if err != nil {
		return nil, err
	}

	inputs := make([]*Node, 0, 1+len(aux))
	inputs = append(inputs, p.terminal)
	for _, a := range aux {
		inputs = append(inputs, a.terminal)
	}

	// Merge reachable sets, deduplicating shared structure, then append the
	// new node.  Input order is preserved so the slice stays topological.
	seen := make(map[*Node]struct{}, len(p.nodes))
	nodes := make([]*Node, 0, len(p.nodes)+1)
	for _, n := range p.nodes {
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	for _, a := range aux {
		for _, n := range a.nodes {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}

	node := &Node{
		id:     nextNodeID(),
		kind:   KindFilter,
		filter: name,
		params: ps,
		inputs: inputs,
	}
	nodes = append(nodes, node)

	return &Pipeline{reg: p.reg, terminal: node, nodes: nodes}, nil
}

// MustApply is Apply that panics on failure; for tests and examples where
// the filter set is known good.
func (p *Pipeline) MustApply(name string, params core.Params, aux ...*Pipeline) *Pipeline {
	next, err := p.Apply(name, params, aux...)
	if err != nil {
		panic(err)
	}
	return next
}

// Terminal returns the pipeline's output node.
func (p *Pipeline) Terminal() *Node { return p.terminal }

// Len returns the number of reachable nodes, sources included.
func (p *Pipeline) Len() int { return len(p.nodes) }

// Nodes returns the reachable node set in dependency order.
func (p *Pipeline) Nodes() []*Node {
	cp := make([]*Node, len(p.nodes))
	copy(cp, p.nodes)
	return cp
}

// Registry returns the registry the pipeline validates against.
func (p *Pipeline) Registry() *core.Registry { return p.reg }

// Sources returns every source image reachable from the terminal node.
func (p *Pipeline) Sources() []*core.Image {
	var out []*core.Image
	for _, n := range p.nodes {
		if n.kind == KindSource {
			out = append(out, n.source)
		}
	}
	return out
}

// SourceExtent returns the union of all source extents; the renderer's
// default output region.
func (p *Pipeline) SourceExtent() image.Rectangle {
	var u image.Rectangle
	for _, s := range p.Sources() {
		u = u.Union(s.Extent)
	}
	return u
}
