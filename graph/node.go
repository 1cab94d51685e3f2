// Package graph models filter pipelines as persistent, acyclic graphs of
// filter applications.  Nothing executes until a renderer walks the graph.
package graph

import (
	"fmt"

	"github.com/dkovalov/filter-graph/core"
)

// NodeKind distinguishes source-image nodes from filter applications.
type NodeKind uint8

const (
	KindSource NodeKind = iota
	KindFilter
)

// Node is one step in a pipeline: a source image, or a filter name plus its
// resolved parameters and references to upstream nodes.  Nodes are immutable
// after construction and may be shared between pipelines.
type Node struct {
	id     int
	kind   NodeKind
	filter string
	params *core.ParameterSet
	inputs []*Node
	source *core.Image
}

// ID returns the node's ordinal within its pipeline's creation order.
func (n *Node) ID() int { return n.id }

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.kind }

// Filter returns the filter name; empty for source nodes.
func (n *Node) Filter() string { return n.filter }

// Params returns the resolved parameter set; nil for source nodes.
func (n *Node) Params() *core.ParameterSet { return n.params }

// Inputs returns the upstream nodes, primary input first.
func (n *Node) Inputs() []*Node {
	cp := make([]*Node, len(n.inputs))
	copy(cp, n.inputs)
	return cp
}

// Source returns the source image; nil for filter nodes.
func (n *Node) Source() *core.Image { return n.source }

// Label returns a stable human-readable identifier used in timings and logs.
func (n *Node) Label() string {
	if n.kind == KindSource {
		return fmt.Sprintf("source#%d", n.id)
	}
	return fmt.Sprintf("%s#%d", n.filter, n.id)
}

// EquivalentTo reports structural equality: same kind, filter, parameters,
// and identical upstream references.  Two independent Apply calls with the
// same arguments produce equivalent (but distinct) terminal nodes.
func (n *Node) EquivalentTo(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.kind != o.kind || n.filter != o.filter {
		return false
	}
	if n.kind == KindSource {
		return n.source == o.source
	}
	if len(n.inputs) != len(o.inputs) {
		return false
	}
	for i := range n.inputs {
		if n.inputs[i] != o.inputs[i] {
			return false
		}
	}
	if (n.params == nil) != (o.params == nil) {
		return false
	}
	return n.params == nil || n.params.Equal(o.params)
}
