package arena

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// SmoothWindow is how long a mirror takes to glide to a new transform
const SmoothWindow = 0.1

// Smoother interpolates a mirror's rendered transform toward the last
// replicated one. The body itself snaps; only the render position lags.
type Smoother struct {
	x, z, h    *gween.Tween
	cx, cz, ch float64
}

// NewSmoother starts at the given transform
func NewSmoother(pos Vec3, heading float64) *Smoother {
	return &Smoother{cx: pos.X, cz: pos.Z, ch: heading}
}

// Retarget starts a new glide from the current render transform
func (s *Smoother) Retarget(pos Vec3, heading float64) {
	s.x = gween.New(float32(s.cx), float32(pos.X), SmoothWindow, ease.Linear)
	s.z = gween.New(float32(s.cz), float32(pos.Z), SmoothWindow, ease.Linear)
	// go the short way round
	end := s.ch + DeltaAngle(s.ch, heading)
	s.h = gween.New(float32(s.ch), float32(end), SmoothWindow, ease.OutQuad)
}

// Update advances the glide by dt seconds
func (s *Smoother) Update(dt float64) {
	if s.x == nil {
		return
	}
	x, _ := s.x.Update(float32(dt))
	z, _ := s.z.Update(float32(dt))
	h, done := s.h.Update(float32(dt))
	s.cx, s.cz, s.ch = float64(x), float64(z), NormalizeHeading(float64(h))
	if done {
		s.x, s.z, s.h = nil, nil, nil
	}
}

// Position returns the rendered position
func (s *Smoother) Position() Vec3 { return Vec3{X: s.cx, Z: s.cz} }

// Heading returns the rendered heading
func (s *Smoother) Heading() float64 { return s.ch }
