package geometry

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// Interaction is the world-space shading view of a resolved hit
type Interaction struct {
	Point     core.Vec3 // World-space hit point
	Normal    core.Vec3 // Unit geometric normal, facing against the incoming ray
	FrontFace bool      // Whether the ray hit the outward-facing side
	Geometry  *Geometry
	FaceHit   int
	Data      []byte // Shape blob, valid until the next traversal
	Ray       core.Ray
	Distance  float64
}

// SetFaceNormal sets the normal vector and determines front/back face
func (in *Interaction) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	in.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if in.FrontFace {
		in.Normal = outwardNormal
	} else {
		in.Normal = outwardNormal.Negate()
	}
}

// Scatter is a sampled continuation of a path
type Scatter struct {
	Direction core.Vec3
	Weight    float64 // Throughput multiplier at the sampled wavelength (f*cos/pdf)
}

// Surface is the shading capability attached to a Geometry. All methods
// work on a single wavelength in nanometres.
type Surface interface {
	// Emitted returns the radiance leaving the hit point towards the ray origin
	Emitted(in *Interaction, wavelength float64) float64
	// Scatter samples an outgoing direction; false means the path is absorbed
	Scatter(in *Interaction, wavelength float64, sampler core.Sampler) (Scatter, bool)
}
