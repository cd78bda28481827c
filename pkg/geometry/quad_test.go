package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

func TestQuad_Trace_BasicIntersection(t *testing.T) {
	// A 1x1 quad in the XZ plane at y=0, facing -y
	quad, err := NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	hits := collect(t, quad, core.NewRay(core.NewVec3(0.25, 1, 0.75), core.NewVec3(0, -1, 0)))
	if len(hits) != 1 {
		t.Fatalf("Expected one hit, got %d", len(hits))
	}
	if math.Abs(hits[0].Distance-1) > 1e-9 {
		t.Errorf("Expected t=1, got t=%f", hits[0].Distance)
	}
	// U × V = X × Z = -Y, so a ray travelling down arrives from behind
	if hits[0].FaceHit != FaceBack {
		t.Errorf("Expected back face, got %d", hits[0].FaceHit)
	}
	alpha, beta, ok := QuadCoordinates(hits[0].Data)
	if !ok || math.Abs(alpha-0.25) > 1e-9 || math.Abs(beta-0.75) > 1e-9 {
		t.Errorf("Expected coordinates (0.25, 0.75), got (%f, %f)", alpha, beta)
	}
	if n := quad.Normal(core.Vec3{}, 0, nil); !n.Equals(core.NewVec3(0, -1, 0), 1e-12) {
		t.Errorf("Expected normal -y, got %v", n)
	}
}

func TestQuad_Trace_Bounds(t *testing.T) {
	quad, _ := NewQuad(core.NewVec3(-1, -1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0))
	down := core.NewVec3(0, 0, -1)

	tests := []struct {
		name      string
		origin    core.Vec3
		direction core.Vec3
		expectHit bool
	}{
		{"center", core.NewVec3(0, 0, 1), down, true},
		{"corner", core.NewVec3(-1, -1, 1), down, true},
		{"opposite corner", core.NewVec3(1, 1, 1), down, true},
		{"outside x", core.NewVec3(1.5, 0, 1), down, false},
		{"outside y", core.NewVec3(0, -1.5, 1), down, false},
		{"parallel", core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0), false},
		{"behind", core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := collect(t, quad, core.NewRay(tt.origin, tt.direction))
			if (len(hits) == 1) != tt.expectHit {
				t.Errorf("Expected hit=%t, got %d hits", tt.expectHit, len(hits))
			}
		})
	}
}

func TestQuad_BoundingBoxAndValidation(t *testing.T) {
	quad, _ := NewQuad(core.NewVec3(1, 2, 3), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 4))
	box := quad.BoundingBox()
	if !box.Min.Equals(core.NewVec3(1, 2, 3), 1e-12) || !box.Max.Equals(core.NewVec3(3, 2, 7), 1e-12) {
		t.Errorf("Unexpected bounds %+v", box)
	}

	if _, err := NewQuad(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(2, 0, 0)); core.StatusOf(err) != core.StatusArithmeticDegenerate {
		t.Errorf("Expected a degenerate error for parallel edges, got %v", err)
	}
}
