package loaders

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
	"github.com/df07/go-spectral-pathtracer/pkg/integrator"
	"github.com/df07/go-spectral-pathtracer/pkg/material"
	"github.com/df07/go-spectral-pathtracer/pkg/scene"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"keyword", `(camera :fov 40)`, `(camera "__kw_fov" 40)`},
		{"kebab-case builtin", `(sdf-box 1)`, `(sdf_box 1)`},
		{"keyword with hyphen", `(glass :cauchy-a 1.5)`, `(glass "__kw_cauchy-a" 1.5)`},
		{"keyword in string", `"a :b c"`, `"a :b c"`},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"minus operator", `(- 10 5)`, `(- 10 5)`},
		{"negative number", `(vec3 0 -1 0)`, `(vec3 0 -1 0)`},
		{"exponent", `(constant 1e-3)`, `(constant 1e-3)`},
		{"comment", `;; a :comment`, `// a :comment`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestParseScriptError(t *testing.T) {
	tests := []struct {
		msg     string
		line    int
		message string
	}{
		{"Error on line 3: unexpected ')'", 3, "unexpected ')'"},
		{"line 12: sphere: radius must be positive", 12, "sphere: radius must be positive"},
		{"  no position here \n", 0, "no position here"},
	}

	for _, tt := range tests {
		got := parseScriptError(errors.New(tt.msg))
		if got.Line != tt.line || got.Message != tt.message {
			t.Errorf("parseScriptError(%q) = %+v, want line %d message %q", tt.msg, got, tt.line, tt.message)
		}
	}
}

func TestLoadScript_Empty(t *testing.T) {
	d, err := LoadScript(context.Background(), "empty", "  \n")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(d.Geometries) != 0 || d.Name != "empty" {
		t.Errorf("Expected an empty description, got %+v", d)
	}
}

const simpleScript = `
; three objects and a camera
(camera :from (vec3 0 0 5) :at (vec3 0 0 0) :fov 30)
(background :top 1 :bottom (constant 0.25))

(def white (diffuse 0.5))
(object (sphere (vec3 0 0 0) 1) white)
(object (plane :y -1) (mirror 0.9))
(object (triangle (vec3 -1 -1 -3) (vec3 1 -1 -3) (vec3 0 1 -3)) (emitter (blackbody 6500)))
`

func TestLoadScript_BuildsObjects(t *testing.T) {
	d, err := LoadScript(context.Background(), "simple", simpleScript)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer d.Release()

	if len(d.Geometries) != 3 {
		t.Fatalf("Expected 3 geometries, got %d", len(d.Geometries))
	}
	if _, ok := d.Geometries[0].Shape().(*geometry.Sphere); !ok {
		t.Errorf("Expected a sphere first, got %T", d.Geometries[0].Shape())
	}
	if _, ok := d.Geometries[1].Surface().(*material.Metal); !ok {
		t.Errorf("Expected a mirror surface, got %T", d.Geometries[1].Surface())
	}
	if _, ok := d.Geometries[2].Surface().(*material.Emissive); !ok {
		t.Errorf("Expected an emissive surface, got %T", d.Geometries[2].Surface())
	}

	if d.Camera.VFov != 30 || !d.Camera.Center.Equals(core.NewVec3(0, 0, 5), 0) {
		t.Errorf("Camera not applied: %+v", d.Camera)
	}
	bg, ok := d.Background.(integrator.GradientBackground)
	if !ok {
		t.Fatalf("Expected a gradient background, got %T", d.Background)
	}
	if got := bg.Radiance(core.NewVec3(0, -1, 0), 550); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Expected bottom radiance 0.25, got %f", got)
	}

	// Shapes are owned by their geometry alone once the script is done
	for i, g := range d.Geometries {
		if g.RefCount() != 1 {
			t.Errorf("Geometry %d: expected refcount 1, got %d", i, g.RefCount())
		}
		if counted, ok := g.Shape().(interface{ Count() int64 }); ok && counted.Count() != 1 {
			t.Errorf("Geometry %d: expected shape refcount 1, got %d", i, counted.Count())
		}
	}

	s, err := d.Build(scene.AcceleratorBVH)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Release()

	hit, ok, err := scene.Intersect(s, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), geometry.NewHitTester(), 0, math.Inf(1))
	if err != nil || !ok {
		t.Fatalf("Expected a hit, got ok=%t err=%v", ok, err)
	}
	if hit.Geometry != d.Geometries[0] || math.Abs(hit.Distance-4) > 1e-9 {
		t.Errorf("Expected the sphere at distance 4, got %v at %f", hit.Geometry, hit.Distance)
	}
}

func TestLoadScript_Transform(t *testing.T) {
	script := `
(def moved (compose (scale 2) (translate (vec3 0 0 -10))))
(object (sphere (vec3 0 0 0) 1) (diffuse 0.5) :transform moved)
(object (box (vec3 0 0 0) 1) :transform (rotate (vec3 0 1 0) 45))
`
	d, err := LoadScript(context.Background(), "transform", script)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer d.Release()

	if len(d.Geometries) != 2 {
		t.Fatalf("Expected 2 geometries, got %d", len(d.Geometries))
	}
	for i, g := range d.Geometries {
		if g.Placement() != geometry.PlacementTransformed {
			t.Errorf("Geometry %d: expected a transformed placement, got %v", i, g.Placement())
		}
	}
	if d.Geometries[1].Surface() != nil {
		t.Errorf("Expected no surface on the box, got %T", d.Geometries[1].Surface())
	}

	// Scaled by 2 then moved to z=-10: the front of the sphere is at z=-8
	s, err := d.Build(scene.AcceleratorList)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Release()
	hit, ok, err := scene.Intersect(s, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), geometry.NewHitTester(), 0, math.Inf(1))
	if err != nil || !ok {
		t.Fatalf("Expected a hit, got ok=%t err=%v", ok, err)
	}
	if hit.Geometry != d.Geometries[1] {
		// The rotated box sits at the origin, in front of the sphere
		t.Errorf("Expected the box to be hit first")
	}
	if want := 5 - math.Sqrt2; math.Abs(hit.Distance-want) > 1e-9 {
		t.Errorf("Expected the box corner edge at distance %f, got %f", want, hit.Distance)
	}
}

func TestLoadScript_SDF(t *testing.T) {
	script := `
(def solid (sdf-union (sdf-sphere 1) [(sdf-box (vec3 1 1 1)) (vec3 5 0 0)]))
(object solid (diffuse 0.5))
(object (sdf-cylinder 2 0.5 :round 0.1) (diffuse 0.5) :transform (translate (vec3 0 5 0)))
`
	d, err := LoadScript(context.Background(), "sdf", script)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer d.Release()

	if len(d.Geometries) != 2 {
		t.Fatalf("Expected 2 geometries, got %d", len(d.Geometries))
	}
	shape, ok := d.Geometries[0].Shape().(*geometry.SDFShape)
	if !ok {
		t.Fatalf("Expected an SDF shape, got %T", d.Geometries[0].Shape())
	}
	box := shape.BoundingBox()
	if box.Max.X < 5.4 || box.Min.X > -0.9 {
		t.Errorf("Expected the union bounds to cover both solids, got %+v", box)
	}
}

func TestLoadScript_Errors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		message string
	}{
		{"unbalanced", `(object (sphere (vec3 0 0 0) 1)`, ""},
		{"unknown function", `(teapot 1)`, "teapot"},
		{"wrong arity", `(vec3 1 2)`, "vec3"},
		{"bad radius", `(object (sphere (vec3 0 0 0) -1))`, "sphere"},
		{"surface expected", `(object (sphere (vec3 0 0 0) 1) 0.5)`, "expected surface"},
		{"bad axis", `(object (plane :w 1))`, "invalid axis"},
		{"degenerate triangle", `(object (triangle (vec3 0 0 0) (vec3 1 1 1) (vec3 2 2 2)))`, "triangle"},
		{"singular transform", `(object (sphere (vec3 0 0 0) 1) :transform (scale (vec3 1 0 1)))`, "transform"},
		{"bad sides", `(diffuse 0.5 :emission 1 :sides 3)`, "sides"},
		{"empty background", `(background)`, "background"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := LoadScript(context.Background(), tt.name, tt.script)
			if err == nil {
				d.Release()
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("Expected an invalid argument error, got %v", err)
			}
			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				t.Fatalf("Expected a *ScriptError in the chain, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected %q in %q", tt.message, err.Error())
			}
		})
	}
}

func TestLoadScriptFile_Missing(t *testing.T) {
	if _, err := LoadScriptFile(context.Background(), "does/not/exist.zy"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadScript_CoatedMetal(t *testing.T) {
	d, err := LoadScript(context.Background(), "coated", `(object (sphere (vec3 0 0 0) 1) (metal 0.8 :coating 0.5))`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer d.Release()

	metal, ok := d.Geometries[0].Surface().(*material.Metal)
	if !ok {
		t.Fatalf("Expected a metal surface, got %T", d.Geometries[0].Surface())
	}
	if got := metal.Reflectance.Sample(550); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("Expected coated reflectance 0.4, got %f", got)
	}
}

func TestAwaitScript(t *testing.T) {
	newDescription := func(t *testing.T) *Description {
		t.Helper()
		sphere, err := geometry.NewSphere(core.NewVec3(0, 0, 0), 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		d := NewDescription("late")
		if err := d.AddObject(sphere, nil, nil); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return d
	}

	t.Run("result before cancellation", func(t *testing.T) {
		d := newDescription(t)
		defer d.Release()
		ch := make(chan scriptResult, 1)
		ch <- scriptResult{desc: d}

		got, err := awaitScript(context.Background(), "late", ch)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != d {
			t.Error("Expected the evaluated description")
		}
	})

	t.Run("late result is released", func(t *testing.T) {
		d := newDescription(t)
		g := d.Geometries[0]
		g.Retain()
		defer g.Release()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := make(chan scriptResult, 1)

		got, err := awaitScript(ctx, "late", ch)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if got != nil {
			t.Fatal("Expected no description after cancellation")
		}

		ch <- scriptResult{desc: d}
		deadline := time.Now().Add(5 * time.Second)
		for g.RefCount() != 1 {
			if time.Now().After(deadline) {
				t.Fatalf("Expected the late description to be released, refcount %d", g.RefCount())
			}
			time.Sleep(time.Millisecond)
		}
	})
}
