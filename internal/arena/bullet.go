package arena

// Bullet is a projectile. Only its owner resolves hits; mirrors just fly.
type Bullet struct {
	base
	g *Game

	resolved bool
	timeout  *Timer
}

func newBullet(g *Game, b base) *Bullet {
	bl := &Bullet{base: b, g: g}
	if g.own.Controllable(bl) {
		bl.timeout = g.sched.AfterFor(bl.id, GameClock, g.tuning.BulletLifetime, func() {
			g.world.NetDestroy(bl)
		})
	}
	return bl
}

// Resolved reports whether the bullet already landed
func (b *Bullet) Resolved() bool { return b.resolved }

// OnTrigger resolves the first obstacle or enemy tank the bullet touches
func (b *Bullet) OnTrigger(other Entity) {
	if b.resolved || b.removed || !b.g.own.Controllable(b) {
		return
	}
	switch o := other.(type) {
	case *Tank:
		if o.destroyed || o.layer == b.layer {
			return
		}
		b.resolved = true
		b.g.rpc(TargetAll, 0, Message{Kind: MsgTakeDamage, Damage: &TakeDamageMsg{
			Tank:   o.id,
			Amount: b.g.tuning.BulletDamage,
			Hit:    b.id,
			Round:  b.g.match.loaded,
		}})
	default:
		if other.Layer() != LayerObstacle {
			return
		}
		b.resolved = true
		if d, ok := other.(*Destructible); ok {
			b.g.rpc(TargetAll, 0, Message{Kind: MsgDestroyObstacle, Obstacle: &DestroyObstacleMsg{
				ID:    d.id,
				Round: b.g.match.loaded,
			}})
		}
	}
	b.g.world.Instantiate(SpawnMsg{Kind: KindExplosion, Position: b.body.Position})
	b.g.world.NetDestroy(b)
}
