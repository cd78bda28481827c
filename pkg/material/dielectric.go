package material

import (
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
	"github.com/df07/go-spectral-pathtracer/pkg/geometry"
)

// Dielectric represents a transparent material like glass. Its index of
// refraction follows Cauchy's equation n(λ) = A + B/λ² with λ in
// micrometres, so a non-zero B disperses white light into colours.
type Dielectric struct {
	CauchyA float64
	CauchyB float64 // µm²
}

// NewDielectric creates a non-dispersive dielectric
func NewDielectric(refractiveIndex float64) *Dielectric {
	return &Dielectric{CauchyA: refractiveIndex}
}

// NewDispersiveDielectric creates a dielectric with Cauchy coefficients,
// e.g. A=1.5046, B=0.00420 for BK7 glass
func NewDispersiveDielectric(a, b float64) *Dielectric {
	return &Dielectric{CauchyA: a, CauchyB: b}
}

// RefractiveIndex returns n at wavelength nm
func (d *Dielectric) RefractiveIndex(wavelength float64) float64 {
	um := wavelength / 1000
	return d.CauchyA + d.CauchyB/(um*um)
}

// Emitted implements geometry.Surface
func (d *Dielectric) Emitted(in *geometry.Interaction, wavelength float64) float64 {
	return 0
}

// Scatter implements geometry.Surface. Reflection or refraction is chosen
// with the Fresnel probability, so the weight is always 1.
func (d *Dielectric) Scatter(in *geometry.Interaction, wavelength float64, sampler core.Sampler) (geometry.Scatter, bool) {
	ior := d.RefractiveIndex(wavelength)

	// Determine if we're entering or exiting the material
	refractionRatio := ior
	if in.FrontFace {
		refractionRatio = 1.0 / ior
	}

	unitDirection := in.Ray.Direction.Normalize()
	cosTheta := math.Min(-unitDirection.Dot(in.Normal), 1.0)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))

	// Check for total internal reflection
	cannotRefract := refractionRatio*sinTheta > 1.0

	var direction core.Vec3
	if cannotRefract || Reflectance(cosTheta, refractionRatio) > sampler.Get1D() {
		direction = reflect(unitDirection, in.Normal)
	} else {
		direction = refract(unitDirection, in.Normal, refractionRatio)
	}
	return geometry.Scatter{Direction: direction, Weight: 1}, true
}

// refract calculates the refraction of a vector using Snell's law
func refract(uv, n core.Vec3, etaiOverEtat float64) core.Vec3 {
	cosTheta := math.Min(-uv.Dot(n), 1.0)
	rOutPerp := uv.Add(n.Multiply(cosTheta)).Multiply(etaiOverEtat)
	rOutParallel := n.Multiply(-math.Sqrt(math.Abs(1.0 - rOutPerp.LengthSquared())))
	return rOutPerp.Add(rOutParallel)
}

// Reflectance calculates the Fresnel reflectance using Schlick's approximation
func Reflectance(cosine, refractionRatio float64) float64 {
	r0 := (1 - refractionRatio) / (1 + refractionRatio)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}
