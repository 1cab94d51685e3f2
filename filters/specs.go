// Package filters holds the static descriptor table for the built-in filter
// kinds.  One generic Apply entry point plus this table replaces a bespoke
// method per filter; backends register implementations for the subset of the
// table they support.
package filters

import "github.com/dkovalov/filter-graph/core"

// Filter categories.
const (
	CategoryBlur        = "blur"
	CategoryColorAdjust = "color-adjustment"
	CategoryColorEffect = "color-effect"
	CategoryComposite   = "composite"
	CategoryDistortion  = "distortion"
	CategoryGeometry    = "geometry"
	CategoryHalftone    = "halftone"
	CategorySharpen     = "sharpen"
	CategoryStylize     = "stylize"
)

// Common parameter names.
const (
	ParamRadius    = "radius"
	ParamAngle     = "angle"
	ParamCenter    = "center"
	ParamIntensity = "intensity"
	ParamScale     = "scale"
	ParamSharpness = "sharpness"
	ParamWidth     = "width"
)

func def(v core.Value) *core.Value { return &v }

func scalar(name string, d float64) core.ParamSpec {
	return core.ParamSpec{Name: name, Tag: core.TagScalar, Default: def(core.Scalar(d))}
}

func vector(name string, d ...float64) core.ParamSpec {
	return core.ParamSpec{Name: name, Tag: core.TagVector, Default: def(core.Vector(d...))}
}

func colorParam(name string, r, g, b, a float64) core.ParamSpec {
	return core.ParamSpec{Name: name, Tag: core.TagColor, Default: def(core.RGBA(r, g, b, a))}
}

var builtin = []core.FilterSpec{
	// ── blur ──────────────────────────────────────────────────────────────
	{Name: "gaussianBlur", Category: CategoryBlur, Params: []core.ParamSpec{
		scalar(ParamRadius, 10),
	}},
	{Name: "boxBlur", Category: CategoryBlur, Params: []core.ParamSpec{
		scalar(ParamRadius, 10),
	}},
	{Name: "discBlur", Category: CategoryBlur, Params: []core.ParamSpec{
		scalar(ParamRadius, 8),
	}},

	// ── color adjustment ──────────────────────────────────────────────────
	{Name: "colorControls", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		scalar("saturation", 1),
		scalar("brightness", 0),
		scalar("contrast", 1),
	}},
	{Name: "exposureAdjust", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		scalar("ev", 0.5),
	}},
	{Name: "gammaAdjust", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		scalar("power", 0.75),
	}},
	{Name: "hueAdjust", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		scalar(ParamAngle, 0), // radians
	}},
	{Name: "whitePointAdjust", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		colorParam("color", 1, 1, 1, 1),
	}},
	{Name: "colorClamp", Category: CategoryColorAdjust, Params: []core.ParamSpec{
		vector("minComponents", 0, 0, 0, 0),
		vector("maxComponents", 1, 1, 1, 1),
	}},

	// ── color effect ──────────────────────────────────────────────────────
	{Name: "colorInvert", Category: CategoryColorEffect},
	{Name: "grayscale", Category: CategoryColorEffect},
	{Name: "colorMonochrome", Category: CategoryColorEffect, Params: []core.ParamSpec{
		colorParam("color", 0.6, 0.45, 0.3, 1),
		scalar(ParamIntensity, 1),
	}},
	{Name: "colorPosterize", Category: CategoryColorEffect, Params: []core.ParamSpec{
		scalar("levels", 6),
	}},
	{Name: "falseColor", Category: CategoryColorEffect, Params: []core.ParamSpec{
		colorParam("color0", 0.3, 0, 0, 1),
		colorParam("color1", 1, 0.9, 0.8, 1),
	}},
	{Name: "sepiaTone", Category: CategoryColorEffect, Params: []core.ParamSpec{
		scalar(ParamIntensity, 1),
	}},
	{Name: "vignette", Category: CategoryColorEffect, Params: []core.ParamSpec{
		scalar(ParamRadius, 1),
		scalar(ParamIntensity, 0),
	}},

	// ── composite (auxiliary image inputs) ────────────────────────────────
	{Name: "sourceOverCompositing", Category: CategoryComposite, AuxInputs: 1},
	{Name: "multiplyCompositing", Category: CategoryComposite, AuxInputs: 1},
	{Name: "additionCompositing", Category: CategoryComposite, AuxInputs: 1},
	// blendWithMask takes a background image and a grayscale mask.
	{Name: "blendWithMask", Category: CategoryComposite, AuxInputs: 2},

	// ── distortion ────────────────────────────────────────────────────────
	{Name: "twirlDistortion", Category: CategoryDistortion, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamRadius, 300),
		scalar(ParamAngle, 3.14),
	}},
	{Name: "pinchDistortion", Category: CategoryDistortion, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamRadius, 300),
		scalar(ParamScale, 0.5),
	}},
	{Name: "bumpDistortion", Category: CategoryDistortion, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamRadius, 300),
		scalar(ParamScale, 0.5),
	}},

	// ── geometry ──────────────────────────────────────────────────────────
	{Name: "affineTransform", Category: CategoryGeometry, Params: []core.ParamSpec{
		{Name: "transform", Tag: core.TagMatrix, Required: true},
	}},
	{Name: "crop", Category: CategoryGeometry, Params: []core.ParamSpec{
		// x, y, width, height in source coordinates.
		{Name: "rectangle", Tag: core.TagVector, Required: true},
	}},
	{Name: "lanczosScaleTransform", Category: CategoryGeometry, Params: []core.ParamSpec{
		scalar(ParamScale, 1),
		scalar("aspectRatio", 1),
	}},
	{Name: "straightenFilter", Category: CategoryGeometry, Params: []core.ParamSpec{
		scalar(ParamAngle, 0), // radians
	}},

	// ── halftone ──────────────────────────────────────────────────────────
	{Name: "dotScreen", Category: CategoryHalftone, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamAngle, 0),
		scalar(ParamWidth, 6),
		scalar(ParamSharpness, 0.7),
	}},
	{Name: "lineScreen", Category: CategoryHalftone, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamAngle, 0),
		scalar(ParamWidth, 6),
		scalar(ParamSharpness, 0.7),
	}},

	// ── sharpen ───────────────────────────────────────────────────────────
	{Name: "sharpenLuminance", Category: CategorySharpen, Params: []core.ParamSpec{
		scalar(ParamSharpness, 0.4),
	}},
	{Name: "unsharpMask", Category: CategorySharpen, Params: []core.ParamSpec{
		scalar(ParamRadius, 2.5),
		scalar(ParamIntensity, 0.5),
	}},

	// ── stylize ───────────────────────────────────────────────────────────
	{Name: "pixellate", Category: CategoryStylize, Params: []core.ParamSpec{
		vector(ParamCenter, 150, 150),
		scalar(ParamScale, 8),
	}},
	{Name: "bloom", Category: CategoryStylize, Params: []core.ParamSpec{
		scalar(ParamRadius, 10),
		scalar(ParamIntensity, 0.5),
	}},
	{Name: "gloom", Category: CategoryStylize, Params: []core.ParamSpec{
		scalar(ParamRadius, 10),
		scalar(ParamIntensity, 0.5),
	}},
	{Name: "edges", Category: CategoryStylize, Params: []core.ParamSpec{
		scalar(ParamIntensity, 1),
	}},
}

// BuiltinSpecs returns the full descriptor table.
func BuiltinSpecs() []core.FilterSpec {
	cp := make([]core.FilterSpec, len(builtin))
	copy(cp, builtin)
	return cp
}

// SpecByName returns the descriptor for one built-in filter.
func SpecByName(name string) (core.FilterSpec, bool) {
	for _, s := range builtin {
		if s.Name == name {
			return s, true
		}
	}
	return core.FilterSpec{}, false
}

// Names lists the built-in filter names in a category; empty category lists
// everything.
func Names(category string) []string {
	var out []string
	for _, s := range builtin {
		if category == "" || s.Category == category {
			out = append(out, s.Name)
		}
	}
	return out
}
