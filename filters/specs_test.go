package filters_test

import (
	"testing"

	"github.com/dkovalov/filter-graph/core"
	"github.com/dkovalov/filter-graph/filters"
)

func TestBuiltinSpecs_Consistent(t *testing.T) {
	seen := map[string]bool{}
	for _, spec := range filters.BuiltinSpecs() {
		if spec.Name == "" || spec.Category == "" {
			t.Errorf("spec %+v missing name or category", spec)
		}
		if seen[spec.Name] {
			t.Errorf("duplicate builtin name %q", spec.Name)
		}
		seen[spec.Name] = true

		for _, ps := range spec.Params {
			if ps.Required && ps.Default != nil {
				t.Errorf("%s.%s: required parameters take no default", spec.Name, ps.Name)
			}
			if !ps.Required && ps.Default == nil {
				t.Errorf("%s.%s: optional parameters need a default", spec.Name, ps.Name)
			}
			if ps.Default != nil && ps.Default.Tag() != ps.Tag {
				t.Errorf("%s.%s: default tag %s does not match schema tag %s",
					spec.Name, ps.Name, ps.Default.Tag(), ps.Tag)
			}
		}
	}
}

func TestBuiltinSpecs_DefaultsValidate(t *testing.T) {
	for _, spec := range filters.BuiltinSpecs() {
		required := false
		for _, ps := range spec.Params {
			required = required || ps.Required
		}
		if required {
			continue
		}
		if _, err := core.BuildParams(spec, nil); err != nil {
			t.Errorf("%s: empty params should build from defaults: %v", spec.Name, err)
		}
	}
}

func TestSpecByName(t *testing.T) {
	spec, ok := filters.SpecByName("gaussianBlur")
	if !ok || spec.Name != "gaussianBlur" {
		t.Fatalf("SpecByName(gaussianBlur) = %+v, %v", spec, ok)
	}
	if _, ok := filters.SpecByName("nonexistent_filter"); ok {
		t.Fatal("unknown name should not resolve")
	}
}

func TestNamesByCategory(t *testing.T) {
	blurs := filters.Names(filters.CategoryBlur)
	if len(blurs) == 0 {
		t.Fatal("no blur filters listed")
	}
	for _, n := range blurs {
		spec, ok := filters.SpecByName(n)
		if !ok || spec.Category != filters.CategoryBlur {
			t.Fatalf("%q listed under blur but has category %q", n, spec.Category)
		}
	}
	if all := filters.Names(""); len(all) != len(filters.BuiltinSpecs()) {
		t.Fatalf("Names(\"\") = %d entries, want %d", len(all), len(filters.BuiltinSpecs()))
	}
}

func TestCompositeAuxArity(t *testing.T) {
	cases := map[string]int{
		"sourceOverCompositing": 1,
		"multiplyCompositing":   1,
		"additionCompositing":   1,
		"blendWithMask":         2,
		"gaussianBlur":          0,
	}
	for name, want := range cases {
		spec, ok := filters.SpecByName(name)
		if !ok {
			t.Fatalf("missing builtin %q", name)
		}
		if spec.AuxInputs != want {
			t.Errorf("%s.AuxInputs = %d, want %d", name, spec.AuxInputs, want)
		}
	}
}
