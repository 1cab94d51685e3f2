package core_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
)

func blurSpec() core.FilterSpec {
	def := core.Scalar(10)
	return core.FilterSpec{
		Name:     "gaussianBlur",
		Category: "blur",
		Params: []core.ParamSpec{
			{Name: "radius", Tag: core.TagScalar, Default: &def},
		},
	}
}

func cropSpec() core.FilterSpec {
	return core.FilterSpec{
		Name: "crop",
		Params: []core.ParamSpec{
			{Name: "rectangle", Tag: core.TagVector, Required: true},
		},
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	ps, err := core.BuildParams(blurSpec(), nil)
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	if got := ps.ScalarOr("radius", -1); got != 10 {
		t.Fatalf("default radius = %v, want 10", got)
	}
	if ps.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ps.Len())
	}
}

func TestBuildParams_Provided(t *testing.T) {
	ps, err := core.BuildParams(blurSpec(), core.Params{"radius": core.Scalar(4)})
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	if got := ps.ScalarOr("radius", -1); got != 4 {
		t.Fatalf("radius = %v, want 4", got)
	}
	if ps.Filter() != "gaussianBlur" {
		t.Fatalf("Filter = %q", ps.Filter())
	}
}

func TestBuildParams_UnknownKey(t *testing.T) {
	_, err := core.BuildParams(blurSpec(), core.Params{"bogus": core.Scalar(1)})
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if ve.Param != "bogus" {
		t.Fatalf("Param = %q, want %q", ve.Param, "bogus")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("message should name the key: %v", err)
	}
}

func TestBuildParams_TagMismatch(t *testing.T) {
	_, err := core.BuildParams(blurSpec(), core.Params{"radius": core.Vector(1, 2)})
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if !strings.Contains(ve.Reason, "want scalar") {
		t.Fatalf("Reason = %q, should mention expected tag", ve.Reason)
	}
}

func TestBuildParams_MissingRequired(t *testing.T) {
	_, err := core.BuildParams(cropSpec(), nil)
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Param != "rectangle" {
		t.Fatalf("Param = %q, want %q", ve.Param, "rectangle")
	}
}

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b core.Value
		want bool
	}{
		{"scalar equal", core.Scalar(2), core.Scalar(2), true},
		{"scalar differs", core.Scalar(2), core.Scalar(3), false},
		{"scalar vs vector", core.Scalar(2), core.Vector(2), false},
		{"vector equal", core.Vector(1, 2), core.Vector(1, 2), true},
		{"vector length", core.Vector(1, 2), core.Vector(1, 2, 3), false},
		{"color equal", core.RGBA(1, 0, 0, 1), core.RGBA(1, 0, 0, 1), true},
		{"color space differs", core.RGBA(1, 0, 0, 1), core.Color(1, 0, 0, 1, core.ColorSpaceLinear), false},
		{"matrix equal", core.Matrix([6]float64{1, 0, 0, 1, 5, 5}), core.Matrix([6]float64{1, 0, 0, 1, 5, 5}), true},
		{"bytes equal", core.Bytes([]byte("ab")), core.Bytes([]byte("ab")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVectorCopiesOnAccess(t *testing.T) {
	v := core.Vector(1, 2, 3)
	out := v.Vector()
	out[0] = 99
	if again := v.Vector(); again[0] != 1 {
		t.Fatal("Vector accessor must return a copy")
	}
}

func TestParameterSetEqual(t *testing.T) {
	spec := blurSpec()
	a, _ := core.BuildParams(spec, core.Params{"radius": core.Scalar(4)})
	b, _ := core.BuildParams(spec, core.Params{"radius": core.Scalar(4)})
	c, _ := core.BuildParams(spec, core.Params{"radius": core.Scalar(5)})
	if !a.Equal(b) {
		t.Fatal("identical builds should compare equal")
	}
	if a.Equal(c) {
		t.Fatal("different values should not compare equal")
	}
}
