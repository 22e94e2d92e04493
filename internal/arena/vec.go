package arena

import "math"

// Vec3 is a position or velocity in world space. Y is up; the arena floor is
// the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v+o
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v*s
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Len returns the vector magnitude
func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Forward returns the unit vector for a yaw heading in degrees.
// Heading 0 looks along +Z, 90 along +X.
func Forward(heading float64) Vec3 {
	r := heading * math.Pi / 180
	return Vec3{X: math.Sin(r), Z: math.Cos(r)}
}

// RotateOffset turns a local offset (x right, z forward) into world space
// for the given heading.
func RotateOffset(local Vec3, heading float64) Vec3 {
	r := heading * math.Pi / 180
	sin, cos := math.Sin(r), math.Cos(r)
	return Vec3{
		X: local.X*cos + local.Z*sin,
		Y: local.Y,
		Z: -local.X*sin + local.Z*cos,
	}
}

// Repeat wraps t into [0, length)
func Repeat(t, length float64) float64 {
	r := t - math.Floor(t/length)*length
	if r >= length {
		return 0
	}
	return r
}

// NormalizeHeading wraps an angle to [0, 360)
func NormalizeHeading(a float64) float64 {
	return Repeat(a, 360)
}

// DeltaAngle returns the shortest signed difference from current to target
// in degrees, in (-180, 180].
func DeltaAngle(current, target float64) float64 {
	d := Repeat(target-current, 360)
	if d > 180 {
		d -= 360
	}
	return d
}

// RotateTowards moves current toward target by at most maxDelta degrees
// along the shortest arc.
func RotateTowards(current, target, maxDelta float64) float64 {
	d := DeltaAngle(current, target)
	if math.Abs(d) <= maxDelta {
		return NormalizeHeading(current + d)
	}
	if d > 0 {
		return NormalizeHeading(current + maxDelta)
	}
	return NormalizeHeading(current - maxDelta)
}

// CheckCollision checks if two circles on the floor plane overlap
func CheckCollision(a Vec3, ra float64, b Vec3, rb float64) bool {
	dx := b.X - a.X
	dz := b.Z - a.Z
	sum := ra + rb
	return dx*dx+dz*dz <= sum*sum
}
