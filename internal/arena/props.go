package arena

// Destructible is a scene obstacle a single bullet removes
type Destructible struct {
	base
	g *Game
}

// DestroyThis removes the obstacle locally. Every peer runs it from the
// replicated DestroyObstacle call.
func (d *Destructible) DestroyThis() {
	d.g.world.Remove(d.id)
}

// Powerup grants triple fire to the tank that touches it. Removal is
// arbitrated by the master since it is a scene object.
type Powerup struct {
	base
	g *Game

	pending bool
}

// Pending reports whether a removal request is waiting on the master
func (p *Powerup) Pending() bool { return p.pending }

// Remove destroys the powerup, asking the master when this peer may not
func (p *Powerup) Remove() {
	if p.removed {
		return
	}
	if p.g.own.Controllable(p) {
		p.g.world.NetDestroy(p)
		return
	}
	if p.pending {
		return
	}
	p.pending = true
	p.g.rpc(TargetMaster, 0, Message{Kind: MsgRemovePowerup, Powerup: &RemovePowerupMsg{
		ID:    p.id,
		Round: p.g.match.loaded,
	}})
}

// Explosion is a short-lived effect. Each peer removes its own copy.
type Explosion struct {
	base
}

func newExplosion(g *Game, b base) *Explosion {
	e := &Explosion{base: b}
	g.sched.AfterFor(e.id, GameClock, ExplosionDuration, func() {
		g.world.Remove(e.id)
	})
	return e
}
