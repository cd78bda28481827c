package loaders

import (
	"fmt"
	"math"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/material"
	"github.com/df07/go-spectral-pathtracer/pkg/spectrum"
)

// builder collects what a script creates. Shapes are owned by the builder
// until evaluation ends; geometries hold their own references.
type builder struct {
	desc  *Description
	owned []any
}

func newBuilder(name string) *builder {
	return &builder{desc: NewDescription(name)}
}

func (b *builder) own(obj any) {
	b.owned = append(b.owned, obj)
}

func (b *builder) releaseOwned() {
	for _, obj := range b.owned {
		core.Release(obj)
	}
	b.owned = nil
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec core.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpSpectrum struct {
	spectrum spectrum.Spectrum
}

func (s *sexpSpectrum) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(spectrum %T)", s.spectrum)
}
func (s *sexpSpectrum) Type() *zygo.RegisteredType { return nil }

type sexpSurface struct {
	surface geometry.Surface
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(surface %T)", s.surface)
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

type sexpShape struct {
	shape geometry.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %T)", s.shape)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpField is a signed distance solid; it becomes a shape when placed
type sexpField struct {
	field sdf.SDF3
}

func (f *sexpField) SexpString(ps *zygo.PrintState) string {
	return "(sdf)"
}
func (f *sexpField) Type() *zygo.RegisteredType { return nil }

type sexpTransform struct {
	matrix *core.Matrix
}

func (t *sexpTransform) SexpString(ps *zygo.PrintState) string {
	return "(transform)"
}
func (t *sexpTransform) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs is a mixed positional and keyword argument list
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns keyword key as a number, or def when absent
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// vec returns keyword key as a vector, or def when absent
func (a kwArgs) vec(key string, def core.Vec3) (core.Vec3, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return core.Vec3{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

// spectrum returns keyword key as a spectrum, or nil when absent
func (a kwArgs) spectrum(key string) (spectrum.Spectrum, error) {
	v, ok := a.kw[key]
	if !ok {
		return nil, nil
	}
	s, err := toSpectrum(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

func (a kwArgs) want(name string, n int) error {
	if len(a.positional) != n {
		return fmt.Errorf("%s requires %d positional arguments, got %d", name, n, len(a.positional))
	}
	return nil
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (core.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	// A single number stands for the same value on every axis
	if f, err := toFloat64(s); err == nil {
		return core.NewVec3(f, f, f), nil
	}
	return core.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSpectrum accepts a spectrum value or a number meaning a constant spectrum
func toSpectrum(s zygo.Sexp) (spectrum.Spectrum, error) {
	if v, ok := s.(*sexpSpectrum); ok {
		return v.spectrum, nil
	}
	if f, err := toFloat64(s); err == nil {
		return spectrum.Constant(f), nil
	}
	return nil, fmt.Errorf("expected spectrum or number, got %T (%s)", s, s.SexpString(nil))
}

func toSurface(s zygo.Sexp) (geometry.Surface, error) {
	if v, ok := s.(*sexpSurface); ok {
		return v.surface, nil
	}
	return nil, fmt.Errorf("expected surface, got %T (%s)", s, s.SexpString(nil))
}

func toField(s zygo.Sexp) (sdf.SDF3, error) {
	if v, ok := s.(*sexpField); ok {
		return v.field, nil
	}
	return nil, fmt.Errorf("expected sdf solid, got %T (%s)", s, s.SexpString(nil))
}

func toTransform(s zygo.Sexp) (*core.Matrix, error) {
	if v, ok := s.(*sexpTransform); ok {
		return v.matrix, nil
	}
	return nil, fmt.Errorf("expected transform, got %T (%s)", s, s.SexpString(nil))
}

// axisIndex converts the axis names x, y and z to an index
func axisIndex(name string) (int, error) {
	switch name {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y or z", name)
}

func floats(name string, args []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		f, err := toFloat64(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(b *builder, args kwArgs) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins. Names use snake_case since
// preprocessSource rewrites kebab-case identifiers.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	builtins := map[string]builtin{
		"vec3": builtinVec3,

		"constant":  builtinConstant,
		"gaussian":  builtinGaussian,
		"blackbody": builtinBlackbody,
		"scaled":    builtinScaled,
		"sum":       builtinSum,

		"diffuse": builtinDiffuse,
		"mirror":  builtinMirror,
		"metal":   builtinMetal,
		"glass":   builtinGlass,
		"emitter": builtinEmitter,
		"mix":     builtinMix,

		"sphere":   builtinSphere,
		"plane":    builtinPlane,
		"triangle": builtinTriangle,
		"quad":     builtinQuad,
		"box":      builtinBox,

		"sdf_box":      builtinSDFBox,
		"sdf_sphere":   builtinSDFSphere,
		"sdf_cylinder": builtinSDFCylinder,
		"sdf_union":    builtinSDFUnion,

		"translate": builtinTranslate,
		"scale":     builtinScale,
		"rotate":    builtinRotate,
		"compose":   builtinCompose,

		"object":     builtinObject,
		"camera":     builtinCamera,
		"background": builtinBackground,
	}

	for name, fn := range builtins {
		display := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			out, err := fn(b, parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
			}
			return out, nil
		})
	}
}

// (vec3 x y z)
func builtinVec3(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("vec3", 3); err != nil {
		return nil, err
	}
	f, err := floats("vec3", a.positional)
	if err != nil {
		return nil, err
	}
	return &sexpVec3{vec: core.NewVec3(f[0], f[1], f[2])}, nil
}

// (constant 0.5)
func builtinConstant(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("constant", 1); err != nil {
		return nil, err
	}
	f, err := toFloat64(a.positional[0])
	if err != nil {
		return nil, err
	}
	return &sexpSpectrum{spectrum: spectrum.Constant(f)}, nil
}

// (gaussian peak mean sigma)
func builtinGaussian(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("gaussian", 3); err != nil {
		return nil, err
	}
	f, err := floats("gaussian", a.positional)
	if err != nil {
		return nil, err
	}
	g, err := spectrum.NewGaussian(f[0], f[1], f[2])
	if err != nil {
		return nil, err
	}
	return &sexpSpectrum{spectrum: g}, nil
}

// (blackbody 6500 :scale 10)
func builtinBlackbody(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("blackbody", 1); err != nil {
		return nil, err
	}
	temperature, err := toFloat64(a.positional[0])
	if err != nil {
		return nil, err
	}
	scale, err := a.float("scale", 1)
	if err != nil {
		return nil, err
	}
	bb, err := spectrum.NewBlackbody(temperature, scale)
	if err != nil {
		return nil, err
	}
	return &sexpSpectrum{spectrum: bb}, nil
}

// (scaled 4 spectrum)
func builtinScaled(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("scaled", 2); err != nil {
		return nil, err
	}
	factor, err := toFloat64(a.positional[0])
	if err != nil {
		return nil, err
	}
	s, err := toSpectrum(a.positional[1])
	if err != nil {
		return nil, err
	}
	return &sexpSpectrum{spectrum: spectrum.Scaled{Factor: factor, Spectrum: s}}, nil
}

// (sum s1 s2 ...)
func builtinSum(b *builder, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) == 0 {
		return nil, fmt.Errorf("sum requires at least one spectrum")
	}
	sum := make(spectrum.Sum, len(a.positional))
	for i, arg := range a.positional {
		s, err := toSpectrum(arg)
		if err != nil {
			return nil, fmt.Errorf("term %d: %w", i+1, err)
		}
		sum[i] = s
	}
	return &sexpSpectrum{spectrum: sum}, nil
}

// (diffuse albedo :emission spectrum :sides 2)
func builtinDiffuse(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("diffuse", 1); err != nil {
		return nil, err
	}
	albedo, err := toSpectrum(a.positional[0])
	if err != nil {
		return nil, err
	}
	emission, err := a.spectrum("emission")
	if err != nil {
		return nil, err
	}
	sides, err := a.float("sides", 1)
	if err != nil {
		return nil, err
	}
	if sides != 1 && sides != 2 {
		return nil, fmt.Errorf("sides must be 1 or 2, got %g", sides)
	}
	if emission == nil {
		return &sexpSurface{surface: material.NewLambertian(albedo)}, nil
	}
	return &sexpSurface{surface: material.NewGlowingLambertian(albedo, emission, sides == 2)}, nil
}

// (mirror reflectance)
func builtinMirror(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("mirror", 1); err != nil {
		return nil, err
	}
	reflectance, err := toSpectrum(a.positional[0])
	if err != nil {
		return nil, err
	}
	return &sexpSurface{surface: material.NewMirror(reflectance)}, nil
}

// (metal reflectance :fuzz 0.2 :coating tint)
func builtinMetal(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("metal", 1); err != nil {
		return nil, err
	}
	reflectance, err := toSpectrum(a.positional[0])
	if err != nil {
		return nil, err
	}
	fuzz, err := a.float("fuzz", 0)
	if err != nil {
		return nil, err
	}
	coating, err := a.spectrum("coating")
	if err != nil {
		return nil, err
	}
	return &sexpSurface{surface: material.NewCoatedMetal(reflectance, coating, fuzz)}, nil
}

// (glass 1.5) or (glass :cauchy-a 1.5 :cauchy-b 4200)
func builtinGlass(b *builder, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) == 1 {
		ior, err := toFloat64(a.positional[0])
		if err != nil {
			return nil, err
		}
		if !(ior > 0) {
			return nil, fmt.Errorf("refractive index must be positive, got %g", ior)
		}
		return &sexpSurface{surface: material.NewDielectric(ior)}, nil
	}
	cauchyA, err := a.float("cauchy-a", 1.5)
	if err != nil {
		return nil, err
	}
	cauchyB, err := a.float("cauchy-b", 0)
	if err != nil {
		return nil, err
	}
	return &sexpSurface{surface: material.NewDispersiveDielectric(cauchyA, cauchyB)}, nil
}

// (emitter spectrum)
func builtinEmitter(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("emitter", 1); err != nil {
		return nil, err
	}
	emission, err := toSpectrum(a.positional[0])
	if err != nil {
		return nil, err
	}
	return &sexpSurface{surface: material.NewEmissive(emission)}, nil
}

// (mix surface1 surface2 ratio)
func builtinMix(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("mix", 3); err != nil {
		return nil, err
	}
	first, err := toSurface(a.positional[0])
	if err != nil {
		return nil, err
	}
	second, err := toSurface(a.positional[1])
	if err != nil {
		return nil, err
	}
	ratio, err := toFloat64(a.positional[2])
	if err != nil {
		return nil, err
	}
	return &sexpSurface{surface: material.NewMix(first, second, ratio)}, nil
}

// shape records a newly created shape as owned by the builder
func (b *builder) shape(s geometry.Shape, err error) (zygo.Sexp, error) {
	if err != nil {
		return nil, err
	}
	b.own(s)
	return &sexpShape{shape: s}, nil
}

// (sphere center radius)
func builtinSphere(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("sphere", 2); err != nil {
		return nil, err
	}
	center, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	radius, err := toFloat64(a.positional[1])
	if err != nil {
		return nil, err
	}
	return b.shape(geometry.NewSphere(center, radius))
}

// (plane :y 0) is the plane y = 0, facing +y
func builtinPlane(b *builder, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) != 0 || len(a.kw) != 1 {
		return nil, fmt.Errorf("plane requires exactly one of :x, :y or :z with an offset")
	}
	for name, value := range a.kw {
		axis, err := axisIndex(name)
		if err != nil {
			return nil, err
		}
		offset, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		return b.shape(geometry.NewAxisPlane(axis, offset))
	}
	return nil, nil
}

// (triangle v0 v1 v2)
func builtinTriangle(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("triangle", 3); err != nil {
		return nil, err
	}
	var v [3]core.Vec3
	for i := range v {
		vec, err := toVec3(a.positional[i])
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		v[i] = vec
	}
	return b.shape(geometry.NewTriangle(v[0], v[1], v[2]))
}

// (quad corner u v)
func builtinQuad(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("quad", 3); err != nil {
		return nil, err
	}
	var v [3]core.Vec3
	for i := range v {
		vec, err := toVec3(a.positional[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		v[i] = vec
	}
	return b.shape(geometry.NewQuad(v[0], v[1], v[2]))
}

// (box center half-extents)
func builtinBox(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("box", 2); err != nil {
		return nil, err
	}
	center, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	size, err := toVec3(a.positional[1])
	if err != nil {
		return nil, err
	}
	return b.shape(geometry.NewBox(center, size))
}

func field(f sdf.SDF3, err error) (zygo.Sexp, error) {
	if err != nil {
		return nil, err
	}
	return &sexpField{field: f}, nil
}

// (sdf-box size :round 0.1)
func builtinSDFBox(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("sdf-box", 1); err != nil {
		return nil, err
	}
	size, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	round, err := a.float("round", 0)
	if err != nil {
		return nil, err
	}
	return field(geometry.SDFBox(size, round))
}

// (sdf-sphere radius)
func builtinSDFSphere(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("sdf-sphere", 1); err != nil {
		return nil, err
	}
	radius, err := toFloat64(a.positional[0])
	if err != nil {
		return nil, err
	}
	return field(geometry.SDFSphere(radius))
}

// (sdf-cylinder height radius :round 0.1)
func builtinSDFCylinder(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("sdf-cylinder", 2); err != nil {
		return nil, err
	}
	f, err := floats("sdf-cylinder", a.positional)
	if err != nil {
		return nil, err
	}
	round, err := a.float("round", 0)
	if err != nil {
		return nil, err
	}
	return field(geometry.SDFCylinder(f[0], f[1], round))
}

// (sdf-union solid [solid offset] ...)
func builtinSDFUnion(b *builder, a kwArgs) (zygo.Sexp, error) {
	fields := make([]sdf.SDF3, 0, len(a.positional))
	for i, arg := range a.positional {
		if f, err := toField(arg); err == nil {
			fields = append(fields, f)
			continue
		}
		// [solid offset] moves a solid before the union
		items, ok := arg.(*zygo.SexpArray)
		if !ok || len(items.Val) != 2 {
			return nil, fmt.Errorf("solid %d: expected sdf solid or [solid offset]", i+1)
		}
		f, err := toField(items.Val[0])
		if err != nil {
			return nil, fmt.Errorf("solid %d: %w", i+1, err)
		}
		offset, err := toVec3(items.Val[1])
		if err != nil {
			return nil, fmt.Errorf("solid %d: %w", i+1, err)
		}
		fields = append(fields, geometry.SDFTranslate(f, offset))
	}
	return field(geometry.SDFUnion(fields...))
}

// (translate offset)
func builtinTranslate(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("translate", 1); err != nil {
		return nil, err
	}
	offset, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	return &sexpTransform{matrix: core.Translate(offset)}, nil
}

// (scale factors) or (scale 2)
func builtinScale(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("scale", 1); err != nil {
		return nil, err
	}
	factors, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	return &sexpTransform{matrix: core.Scale(factors)}, nil
}

// (rotate axis degrees)
func builtinRotate(b *builder, a kwArgs) (zygo.Sexp, error) {
	if err := a.want("rotate", 2); err != nil {
		return nil, err
	}
	axis, err := toVec3(a.positional[0])
	if err != nil {
		return nil, err
	}
	if axis.LengthSquared() == 0 {
		return nil, fmt.Errorf("rotation axis must not be zero")
	}
	degrees, err := toFloat64(a.positional[1])
	if err != nil {
		return nil, err
	}
	return &sexpTransform{matrix: core.Rotate(axis, degrees*math.Pi/180)}, nil
}

// (compose t1 t2 ...) applies t1 first
func builtinCompose(b *builder, a kwArgs) (zygo.Sexp, error) {
	m := core.Identity()
	for i, arg := range a.positional {
		t, err := toTransform(arg)
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i+1, err)
		}
		m = t.Mul(m)
	}
	return &sexpTransform{matrix: m}, nil
}

// (object shape surface :transform t)
func builtinObject(b *builder, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) != 1 && len(a.positional) != 2 {
		return nil, fmt.Errorf("object requires a shape and an optional surface")
	}

	var shape geometry.Shape
	switch v := a.positional[0].(type) {
	case *sexpShape:
		shape = v.shape
	case *sexpField:
		s, err := geometry.NewSDFShape(v.field)
		if err != nil {
			return nil, err
		}
		b.own(s)
		shape = s
	default:
		return nil, fmt.Errorf("expected shape or sdf solid, got %T (%s)", v, v.SexpString(nil))
	}

	var surface geometry.Surface
	if len(a.positional) == 2 {
		s, err := toSurface(a.positional[1])
		if err != nil {
			return nil, err
		}
		surface = s
	}

	var transform *core.InvertibleMatrix
	if v, ok := a.kw["transform"]; ok {
		m, err := toTransform(v)
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		transform, err = core.NewInvertibleMatrix(m)
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		b.own(transform)
	}

	if err := b.desc.AddObject(shape, transform, surface); err != nil {
		return nil, err
	}
	return zygo.SexpNull, nil
}

// (camera :from v :at v :up v :fov 40 :aperture 0 :focus 0)
func builtinCamera(b *builder, a kwArgs) (zygo.Sexp, error) {
	c := b.desc.Camera
	var err error
	if c.Center, err = a.vec("from", c.Center); err != nil {
		return nil, err
	}
	if c.LookAt, err = a.vec("at", c.LookAt); err != nil {
		return nil, err
	}
	if c.Up, err = a.vec("up", c.Up); err != nil {
		return nil, err
	}
	if c.VFov, err = a.float("fov", c.VFov); err != nil {
		return nil, err
	}
	if c.Aperture, err = a.float("aperture", c.Aperture); err != nil {
		return nil, err
	}
	if c.FocusDistance, err = a.float("focus", c.FocusDistance); err != nil {
		return nil, err
	}
	b.desc.Camera = c
	return zygo.SexpNull, nil
}

// (background spectrum) or (background :top spectrum :bottom spectrum)
func builtinBackground(b *builder, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) == 1 {
		s, err := toSpectrum(a.positional[0])
		if err != nil {
			return nil, err
		}
		b.desc.Background = integrator.UniformBackground{Spectrum: s}
		return zygo.SexpNull, nil
	}
	top, err := a.spectrum("top")
	if err != nil {
		return nil, err
	}
	bottom, err := a.spectrum("bottom")
	if err != nil {
		return nil, err
	}
	if top == nil && bottom == nil {
		return nil, fmt.Errorf("background requires a spectrum or :top and :bottom")
	}
	b.desc.Background = integrator.GradientBackground{Top: top, Bottom: bottom}
	return zygo.SexpNull, nil
}
