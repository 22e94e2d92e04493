package arena

import "math"

// Direction is one of the four headings a tank can face, in degrees
type Direction int

const (
	DirUp    Direction = 0
	DirRight Direction = 90
	DirDown  Direction = 180
	DirLeft  Direction = 270
)

// ClampDirection wraps any multiple of 90 into [0, 360)
func ClampDirection(d int) Direction {
	d %= 360
	if d < 0 {
		d += 360
	}
	return Direction(d)
}

// Rotation is a tank's turn intent
type Rotation int8

const (
	RotateLeft  Rotation = -1
	RotateNone  Rotation = 0
	RotateRight Rotation = 1
)

// Tank is a player vehicle. Its owner drives it; every other peer holds a
// mirror fed by transform updates.
type Tank struct {
	base
	g *Game

	role   Role
	color  Color
	health float64

	rotate Rotation
	target Direction

	powered    bool
	powerTimer *Timer

	firePrev  bool
	hits      map[EntityID]struct{}
	destroyed bool
}

func newTank(g *Game, b base, role Role) *Tank {
	t := &Tank{
		base:   b,
		g:      g,
		role:   role,
		color:  RoleColor(role),
		health: g.tuning.MaxHealth,
		target: ClampDirection(int(math.Round(b.body.Heading))),
		hits:   make(map[EntityID]struct{}),
	}
	return t
}

// Health returns the remaining hit points
func (t *Tank) Health() float64 { return t.health }

// Role returns the join-order role the tank was spawned for
func (t *Tank) Role() Role { return t.role }

// Color returns the tint derived from the role
func (t *Tank) Color() Color { return t.color }

// Rotation returns the current turn intent
func (t *Tank) Rotation() Rotation { return t.rotate }

// TargetDirection returns the heading the tank is turning toward
func (t *Tank) TargetDirection() Direction { return t.target }

// Powered reports whether triple fire is active
func (t *Tank) Powered() bool { return t.powered }

// Destroyed reports whether the tank has been killed this round
func (t *Tank) Destroyed() bool { return t.destroyed }

// FixedUpdate turns the tank toward its target direction
func (t *Tank) FixedUpdate(dt float64) {
	if t.rotate == RotateNone || !t.g.own.Controllable(t) {
		return
	}
	target := float64(t.target)
	cur := t.body.Heading
	if math.Abs(DeltaAngle(cur, target)) < HeadingEpsilon {
		t.body.Heading = target
		t.body.AngularVelocity = 0
		t.rotate = RotateNone
		return
	}
	next := RotateTowards(cur, target, t.g.tuning.RotateSpeed*dt)
	t.body.AngularVelocity = DeltaAngle(cur, next) / dt
	t.body.Velocity = Vec3{}
}

// HandleInput applies one frame of controls. Only the owner's input counts.
func (t *Tank) HandleInput(c Controls) {
	if t.destroyed || t.removed || !t.g.own.Controllable(t) {
		return
	}
	fire := c.Fire && !t.firePrev
	t.firePrev = c.Fire

	if c.Left && c.Right {
		return
	}
	switch {
	case c.Left:
		if t.rotate != RotateLeft {
			t.turn(RotateLeft)
		}
	case c.Right && t.rotate != RotateRight:
		t.turn(RotateRight)
	case t.rotate == RotateNone:
		v := math.Max(-1, math.Min(1, c.Vertical))
		t.body.Velocity = Forward(t.body.Heading).Scale(v * t.g.tuning.TankSpeed)
	}
	if fire {
		t.Fire()
	}
}

func (t *Tank) turn(r Rotation) {
	t.rotate = r
	t.target = ClampDirection(int(t.target) + int(r)*90)
	t.body.Velocity = Vec3{}
}

// Fire spawns one bullet, or three while powered up. It returns how many
// were spawned.
func (t *Tank) Fire() int {
	if t.destroyed || !t.g.own.Controllable(t) {
		return 0
	}
	muzzles := []Vec3{t.g.tuning.BulletSpawn}
	if t.powered {
		muzzles = append(muzzles, t.g.tuning.SideMounts[:]...)
	}
	h := t.body.Heading
	for _, m := range muzzles {
		t.g.world.Instantiate(SpawnMsg{
			Kind:     KindBullet,
			Position: t.body.Position.Add(RotateOffset(m, h)),
			Heading:  h,
			Velocity: Forward(h).Scale(t.g.tuning.BulletSpeed),
			Layer:    t.layer,
		})
	}
	return len(muzzles)
}

// ApplyDamage handles a TakeDamage call on any peer. hit identifies the
// bullet; a repeated hit is ignored.
func (t *Tank) ApplyDamage(amount float64, hit EntityID) {
	if t.destroyed || t.g.match.GameOver() {
		return
	}
	if hit != 0 {
		if _, dup := t.hits[hit]; dup {
			return
		}
		t.hits[hit] = struct{}{}
	}
	if amount <= 0 {
		return
	}
	if t.health <= amount {
		t.health = 0
		t.destroy()
		return
	}
	t.health -= amount
}

func (t *Tank) destroy() {
	t.destroyed = true
	t.powered = false
	t.g.sched.CancelOwner(t.id)
	t.g.events.Dispatch(Event{Type: EventTankDestroyed, Entity: t})

	if !t.g.own.Controllable(t) {
		// the owner's despawn removes it everywhere; hide it here already
		t.g.world.Remove(t.id)
		return
	}
	t.g.world.Instantiate(SpawnMsg{Kind: KindExplosion, Position: t.body.Position})
	t.g.world.NetDestroy(t)
	t.g.match.ReportLoss(t)
}

// OnTrigger picks up powerups on the owner
func (t *Tank) OnTrigger(other Entity) {
	p, ok := other.(*Powerup)
	if !ok || t.destroyed || !t.g.own.Controllable(t) {
		return
	}
	if p.pending || p.removed {
		return
	}
	t.grantPowerup()
	p.Remove()
}

// grantPowerup enables triple fire; a second pickup restarts the window
func (t *Tank) grantPowerup() {
	t.powered = true
	t.powerTimer.Stop()
	t.powerTimer = t.g.sched.AfterFor(t.id, GameClock, PowerupDuration, func() {
		t.powered = false
	})
}
