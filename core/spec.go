package core

import (
	"fmt"
	"sort"

	apperrors "github.com/dkovalov/filter-graph/errors"
)

// ParamSpec describes one parameter of a filter kind.
type ParamSpec struct {
	Name     string
	Tag      ValueTag
	Required bool
	// Default is applied when an optional parameter is absent.  Must carry
	// the same tag; nil means the parameter is simply omitted.
	Default *Value
}

// FilterSpec is the static descriptor of a filter kind: its name, parameter
// schema, and how many auxiliary image inputs it consumes beyond the primary
// one.  Immutable after registration.
type FilterSpec struct {
	Name      string
	Category  string
	Params    []ParamSpec
	AuxInputs int
}

func (s FilterSpec) param(name string) *ParamSpec {
	for i := range s.Params {
		if s.Params[i].Name == name {
			return &s.Params[i]
		}
	}
	return nil
}

// ParameterSet is a validated, ordered mapping from parameter name to Value.
// Build one with BuildParams; a zero ParameterSet is valid and empty.
type ParameterSet struct {
	filter string
	keys   []string
	values map[string]Value
}

// BuildParams validates provided against the filter's schema and returns the
// resolved ParameterSet.  Every required parameter must be present, every
// provided value's tag must match the schema, and unknown keys are rejected
// rather than silently ignored.  Numeric ranges are not validated here.
func BuildParams(spec FilterSpec, provided Params) (*ParameterSet, error) {
	for name, v := range provided {
		ps := spec.param(name)
		if ps == nil {
			return nil, &apperrors.ValidationError{
				Filter: spec.Name,
				Param:  name,
				Reason: apperrors.ErrUnknownParameter.Error(),
			}
		}
		if v.Tag() != ps.Tag {
			return nil, &apperrors.ValidationError{
				Filter: spec.Name,
				Param:  name,
				Reason: fmt.Sprintf("%v: want %s, got %s", apperrors.ErrTagMismatch, ps.Tag, v.Tag()),
			}
		}
	}

	values := make(map[string]Value, len(spec.Params))
	keys := make([]string, 0, len(spec.Params))
	for _, ps := range spec.Params {
		if v, ok := provided[ps.Name]; ok {
			values[ps.Name] = v
			keys = append(keys, ps.Name)
			continue
		}
		if ps.Required {
			return nil, &apperrors.ValidationError{
				Filter: spec.Name,
				Param:  ps.Name,
				Reason: apperrors.ErrMissingParameter.Error(),
			}
		}
		if ps.Default != nil {
			values[ps.Name] = *ps.Default
			keys = append(keys, ps.Name)
		}
	}

	return &ParameterSet{filter: spec.Name, keys: keys, values: values}, nil
}

// Filter returns the name of the filter the set was validated against.
func (p *ParameterSet) Filter() string { return p.filter }

// Len returns the number of resolved parameters.
func (p *ParameterSet) Len() int { return len(p.keys) }

// Names returns the resolved parameter names in schema order.
func (p *ParameterSet) Names() []string {
	cp := make([]string, len(p.keys))
	copy(cp, p.keys)
	return cp
}

// Get returns the named value.
func (p *ParameterSet) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// ScalarOr returns the named scalar, or def when absent.
func (p *ParameterSet) ScalarOr(name string, def float64) float64 {
	if v, ok := p.values[name]; ok && v.Tag() == TagScalar {
		return v.Scalar()
	}
	return def
}

// VectorOr returns the named vector, or def when absent.
func (p *ParameterSet) VectorOr(name string, def []float64) []float64 {
	if v, ok := p.values[name]; ok && v.Tag() == TagVector {
		return v.Vector()
	}
	return def
}

// ColorOr returns the named colour, or def when absent.
func (p *ParameterSet) ColorOr(name string, def [4]float64) [4]float64 {
	if v, ok := p.values[name]; ok && v.Tag() == TagColor {
		c, _ := v.Color()
		return c
	}
	return def
}

// MatrixOr returns the named affine matrix, or def when absent.
func (p *ParameterSet) MatrixOr(name string, def [6]float64) [6]float64 {
	if v, ok := p.values[name]; ok && v.Tag() == TagMatrix {
		return v.Matrix()
	}
	return def
}

// Equal reports whether two sets resolved to structurally equal values.
func (p *ParameterSet) Equal(o *ParameterSet) bool {
	if p.filter != o.filter || len(p.keys) != len(o.keys) {
		return false
	}
	for _, k := range p.keys {
		ov, ok := o.values[k]
		if !ok || !p.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// SortedNames returns the resolved parameter names in lexical order; used for
// stable log output.
func (p *ParameterSet) SortedNames() []string {
	cp := p.Names()
	sort.Strings(cp)
	return cp
}
