package renderer

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// CameraConfig describes a look-at camera
type CameraConfig struct {
	Center        core.Vec3 // Eye position
	LookAt        core.Vec3 // Point the camera faces
	Up            core.Vec3 // Approximate up direction
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens diameter, 0 for a pinhole
	FocusDistance float64   // 0 focuses on LookAt
}

// DefaultCameraConfig looks down -z from the origin
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center: core.NewVec3(0, 0, 0),
		LookAt: core.NewVec3(0, 0, -1),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45.0,
	}
}

// Camera generates primary rays
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v            core.Vec3
	lensRadius      float64
}

// NewCamera creates a camera for an image of the given aspect ratio (width/height)
func NewCamera(config CameraConfig, aspectRatio float64) (*Camera, error) {
	if !(config.VFov > 0 && config.VFov < 180) {
		return nil, core.NewError(core.StatusInvalidArgument, "camera.new", fmt.Sprintf("vertical fov %g out of range (0, 180)", config.VFov))
	}
	if !(aspectRatio > 0) || math.IsInf(aspectRatio, 0) {
		return nil, core.NewError(core.StatusInvalidArgument, "camera.new", fmt.Sprintf("invalid aspect ratio %g", aspectRatio))
	}
	if config.Aperture < 0 || config.FocusDistance < 0 {
		return nil, core.NewError(core.StatusInvalidArgument, "camera.new", "negative aperture or focus distance")
	}

	view := config.Center.Subtract(config.LookAt)
	if view.LengthSquared() == 0 {
		return nil, core.NewError(core.StatusArithmeticDegenerate, "camera.new", "camera looks at its own position")
	}
	w := view.Normalize()
	u := config.Up.Cross(w)
	if u.LengthSquared() < 1e-24 {
		return nil, core.NewError(core.StatusArithmeticDegenerate, "camera.new", "up vector is parallel to the view direction")
	}
	u = u.Normalize()
	v := w.Cross(u)

	focusDistance := config.FocusDistance
	if focusDistance == 0 {
		focusDistance = view.Length()
	}

	viewportHeight := 2.0 * math.Tan(config.VFov*math.Pi/360.0)
	viewportWidth := aspectRatio * viewportHeight

	horizontal := u.Multiply(viewportWidth * focusDistance)
	vertical := v.Multiply(viewportHeight * focusDistance)
	lowerLeftCorner := config.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDistance))

	return &Camera{
		origin:          config.Center,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		lensRadius:      config.Aperture / 2,
	}, nil
}

// GetRay generates a ray for screen coordinates (s, t) where 0 <= s,t <= 1
// and (0, 0) is the bottom-left corner. lens picks the point on the
// aperture and is ignored by pinhole cameras.
func (c *Camera) GetRay(s, t float64, lens core.Vec2) core.Ray {
	origin := c.origin
	if c.lensRadius > 0 {
		r := c.lensRadius * math.Sqrt(lens.X)
		sin, cos := math.Sincos(2 * math.Pi * lens.Y)
		origin = origin.Add(c.u.Multiply(r * cos)).Add(c.v.Multiply(r * sin))
	}

	target := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))
	return core.NewRay(origin, target.Subtract(origin))
}

// GetPixelRay generates a jittered ray through pixel (x, y) of a width x
// height image whose row 0 is at the top
func (c *Camera) GetPixelRay(x, y, width, height int, sampler core.Sampler) core.Ray {
	jitter := sampler.Get2D()
	s := (float64(x) + jitter.X) / float64(width)
	t := (float64(height-1-y) + jitter.Y) / float64(height)
	return c.GetRay(s, t, sampler.Get2D())
}
