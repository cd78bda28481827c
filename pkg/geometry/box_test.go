package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

func TestNewBox(t *testing.T) {
	box, err := NewBox(core.NewVec3(1, 2, 3), core.NewVec3(0.5, 1, 1.5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	bounds := box.BoundingBox()
	if !bounds.Min.Equals(core.NewVec3(0.5, 1, 1.5), 1e-12) || !bounds.Max.Equals(core.NewVec3(1.5, 3, 4.5), 1e-12) {
		t.Errorf("Unexpected bounds %+v", bounds)
	}

	if _, err := NewBox(core.Vec3{}, core.NewVec3(1, 0, 1)); core.StatusOf(err) != core.StatusInvalidArgument {
		t.Errorf("Expected invalid argument for a flat box, got %v", err)
	}
}

func TestBox_Trace(t *testing.T) {
	box, _ := NewBox(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))

	tests := []struct {
		name      string
		ray       core.Ray
		distances []float64
		normal    core.Vec3 // Outward normal at the first hit
	}{
		{"front", core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), []float64{4, 6}, core.NewVec3(0, 0, 1)},
		{"side", core.NewRay(core.NewVec3(-3, 0.5, 0), core.NewVec3(1, 0, 0)), []float64{2, 4}, core.NewVec3(-1, 0, 0)},
		{"top", core.NewRay(core.NewVec3(0.2, 4, -0.3), core.NewVec3(0, -1, 0)), []float64{3, 5}, core.NewVec3(0, 1, 0)},
		{"inside", core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)), []float64{-1, 1}, core.NewVec3(0, -1, 0)},
		{"miss", core.NewRay(core.NewVec3(3, 3, 3), core.NewVec3(0, 0, -1)), nil, core.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := collect(t, box, tt.ray)
			if len(hits) != len(tt.distances) {
				t.Fatalf("Expected %d hits, got %d", len(tt.distances), len(hits))
			}
			for i, d := range tt.distances {
				if math.Abs(hits[i].Distance-d) > 1e-9 {
					t.Errorf("Hit %d: expected distance %f, got %f", i, d, hits[i].Distance)
				}
			}
			if len(hits) == 0 {
				return
			}
			if hits[0].FaceHit != FaceFront || hits[1].FaceHit != FaceBack {
				t.Error("Expected entry then exit faces")
			}
			point := tt.ray.At(hits[0].Distance)
			if n := box.Normal(point, hits[0].FaceHit, hits[0].Data); !n.Equals(tt.normal, 1e-12) {
				t.Errorf("Expected normal %v, got %v", tt.normal, n)
			}
		})
	}
}
