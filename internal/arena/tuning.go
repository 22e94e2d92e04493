package arena

import "time"

const (
	// RequiredPlayers is how many peers a match needs before spawning
	RequiredPlayers = 2
	// PowerupDuration is how long triple fire lasts (game clock)
	PowerupDuration = 7 * time.Second
	// RestartDelay is the pause between a round ending and the reload (real clock)
	RestartDelay = 3 * time.Second
	// ExplosionDuration is how long an explosion effect lives on each peer
	ExplosionDuration = 1 * time.Second
	// HeadingEpsilon is how close a turn has to get before it snaps
	HeadingEpsilon = 0.001
	// TransformSendRate is how many transform updates per second an owner sends
	TransformSendRate = 20
)

// Trigger radii on the floor plane
const (
	TankRadius         = 1.2
	BulletRadius       = 0.15
	PowerupRadius      = 0.6
	DestructibleRadius = 0.9
	WallRadius         = 1.0
	ExplosionRadius    = 0
)

// Tuning holds the per-match gameplay constants
type Tuning struct {
	MaxHealth      float64
	TankSpeed      float64 // units per second at full axis
	RotateSpeed    float64 // degrees per second
	BulletSpeed    float64
	BulletDamage   float64
	BulletLifetime time.Duration
	BulletSpawn    Vec3    // muzzle offset in tank space
	SideMounts     [2]Vec3 // extra muzzles used while powered up
}

// DefaultTuning returns the standard arena settings
func DefaultTuning() Tuning {
	return Tuning{
		MaxHealth:      50,
		TankSpeed:      1,
		RotateSpeed:    45,
		BulletSpeed:    5,
		BulletDamage:   5,
		BulletLifetime: 5 * time.Second,
		BulletSpawn:    Vec3{Y: 0.5, Z: 1.5},
		SideMounts: [2]Vec3{
			{X: -0.8, Y: 0.5, Z: 1.2},
			{X: 0.8, Y: 0.5, Z: 1.2},
		},
	}
}

// Role is the join order of a tank's owner in the match
type Role uint8

const (
	RoleNone Role = iota
	RoleFirst
	RoleSecond
)

// Color is an RGB tint
type Color struct {
	R, G, B uint8
}

var (
	ColorA = Color{R: 60, G: 120, B: 230}
	ColorB = Color{R: 220, G: 60, B: 60}
)

// RoleColor returns the tint for a role
func RoleColor(r Role) Color {
	if r == RoleSecond {
		return ColorB
	}
	return ColorA
}

// RoleLayer returns the collision layer for a role
func RoleLayer(r Role) Layer {
	if r == RoleSecond {
		return LayerTankB
	}
	return LayerTankA
}
