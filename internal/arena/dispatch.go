package arena

import log "github.com/sirupsen/logrus"

// apply executes a replicated message on this peer. Every handler is
// idempotent: duplicates, messages for entities that are already gone and
// messages from another round are dropped.
func (g *Game) apply(from PeerID, m Message) {
	if log.IsLevelEnabled(log.DebugLevel) && m.Kind != MsgTransform {
		g.log.WithFields(log.Fields{"from": from, "kind": m.Kind}).Debug("apply")
	}
	switch m.Kind {
	case MsgSpawn:
		s := m.Spawn
		if g.match.scene != SceneWorld || s.Round < g.match.loaded {
			return
		}
		if idOwner(s.ID) != from {
			g.log.WithFields(log.Fields{"from": from, "entity": s.ID}).Warn("spawn outside sender's id range")
			return
		}
		if s.Round > g.match.loaded {
			g.match.applyReload(s.Round)
		}
		spec := *s
		spec.Owner = from
		g.world.create(spec)

	case MsgDespawn:
		g.world.Remove(m.Despawn.ID)

	case MsgTransform:
		g.world.applyTransform(m.Transform)

	case MsgTakeDamage:
		if m.Damage.Round != g.match.loaded {
			return
		}
		if t, ok := g.world.Get(m.Damage.Tank).(*Tank); ok {
			t.ApplyDamage(m.Damage.Amount, m.Damage.Hit)
		}

	case MsgDestroyObstacle:
		if m.Obstacle.Round != g.match.loaded {
			return
		}
		if d, ok := g.world.Get(m.Obstacle.ID).(*Destructible); ok {
			d.DestroyThis()
		}

	case MsgRemovePowerup:
		if !g.own.IsMaster() || m.Powerup.Round != g.match.loaded {
			return
		}
		if p, ok := g.world.Get(m.Powerup.ID).(*Powerup); ok {
			p.Remove()
		}

	case MsgSpawnAssignment:
		g.match.OnSpawnAssignment(*m.Assignment)

	case MsgWinNotice:
		g.match.OnWinNotice(*m.Win)

	case MsgReloadWorld:
		g.match.applyReload(m.Reload.Round)
	}
}
