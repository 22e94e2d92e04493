package arena

import (
	"maps"
	"slices"

	log "github.com/sirupsen/logrus"
)

// World is the per-peer registry of replicated entities
type World struct {
	g        *Game
	entities map[EntityID]Entity
	nextSeq  int32

	grid     *SpatialGrid
	contacts map[[2]EntityID]struct{}
	buf      []EntityID
}

func newWorld(g *Game) *World {
	return &World{
		g:        g,
		entities: make(map[EntityID]Entity),
		grid:     NewSpatialGrid(g.layout.Size),
		contacts: make(map[[2]EntityID]struct{}),
	}
}

// Get looks an entity up by network ID
func (w *World) Get(id EntityID) Entity {
	return w.entities[id]
}

// Len returns the number of live entities
func (w *World) Len() int { return len(w.entities) }

// Tanks returns the live tanks in ID order
func (w *World) Tanks() []*Tank {
	var out []*Tank
	for _, e := range w.sorted() {
		if t, ok := e.(*Tank); ok {
			out = append(out, t)
		}
	}
	return out
}

// Count returns how many live entities have kind k
func (w *World) Count(k Kind) int {
	n := 0
	for _, e := range w.entities {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

func (w *World) sorted() []Entity {
	ids := slices.Sorted(maps.Keys(w.entities))
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.entities[id])
	}
	return out
}

// LoadLayout creates the scene entities. IDs follow layout order from 1, so
// every peer agrees on them without messages.
func (w *World) LoadLayout(l Layout) {
	id := EntityID(0)
	add := func(k Kind, p Vec3) {
		id++
		w.create(SpawnMsg{ID: id, Kind: k, Position: p})
	}
	for _, p := range l.Walls {
		add(KindWall, p)
	}
	for _, p := range l.Destructibles {
		add(KindDestructible, p)
	}
	for _, p := range l.Powerups {
		add(KindPowerup, p)
	}
}

// Instantiate creates an entity owned by the local peer and replicates it
func (w *World) Instantiate(spec SpawnMsg) Entity {
	spec.Owner = w.g.net.LocalPeer()
	spec.ID = w.allocID(spec.Owner)
	spec.Round = w.g.match.round
	e := w.create(spec)
	w.g.send(TargetOthers, 0, Message{Kind: MsgSpawn, Spawn: &spec})
	return e
}

// allocID returns the next free ID in the owner's range
func (w *World) allocID(owner PeerID) EntityID {
	first := EntityID(int32(owner+1) * IDStride)
	for {
		w.nextSeq = w.nextSeq%(IDStride-1) + 1
		id := first + EntityID(w.nextSeq)
		if _, taken := w.entities[id]; !taken {
			return id
		}
	}
}

func (w *World) create(spec SpawnMsg) Entity {
	if old, ok := w.entities[spec.ID]; ok {
		return old
	}
	b := base{
		id:    spec.ID,
		owner: spec.Owner,
		kind:  spec.Kind,
		layer: spec.Layer,
		body:  Body{Position: spec.Position, Heading: NormalizeHeading(spec.Heading), Velocity: spec.Velocity},
	}
	var e Entity
	switch spec.Kind {
	case KindTank:
		b.radius = TankRadius
		e = newTank(w.g, b, spec.Role)
	case KindBullet:
		b.radius = BulletRadius
		e = newBullet(w.g, b)
	case KindDestructible:
		b.radius, b.layer = DestructibleRadius, LayerObstacle
		e = &Destructible{base: b, g: w.g}
	case KindPowerup:
		b.radius = PowerupRadius
		e = &Powerup{base: b, g: w.g}
	case KindExplosion:
		b.radius = ExplosionRadius
		e = newExplosion(w.g, b)
	case KindWall:
		b.radius, b.layer = WallRadius, LayerObstacle
		e = &Wall{base: b}
	default:
		w.g.log.WithField("kind", spec.Kind).Warn("spawn of unknown kind")
		return nil
	}
	if spec.Kind == KindTank && spec.Owner != 0 && !w.g.own.Controllable(e) {
		eb := baseOf(e)
		eb.smooth = NewSmoother(eb.body.Position, eb.body.Heading)
	}
	w.entities[spec.ID] = e
	w.g.events.Dispatch(Event{Type: EventEntitySpawned, Entity: e})
	return e
}

// Remove drops an entity locally. It reports false when it was already gone.
func (w *World) Remove(id EntityID) bool {
	e, ok := w.entities[id]
	if !ok || !baseOf(e).markRemoved() {
		return false
	}
	delete(w.entities, id)
	w.g.sched.CancelOwner(id)
	w.g.events.Dispatch(Event{Type: EventEntityRemoved, Entity: e})
	return true
}

// NetDestroy removes a controllable entity on every peer
func (w *World) NetDestroy(e Entity) bool {
	if e == nil || e.Removed() || !w.g.own.Controllable(e) {
		return false
	}
	if !w.Remove(e.ID()) {
		return false
	}
	w.g.send(TargetOthers, 0, Message{Kind: MsgDespawn, Despawn: &DespawnMsg{ID: e.ID()}})
	return true
}

// ReleaseOwned network-destroys everything the local peer instantiated
func (w *World) ReleaseOwned() int {
	local := w.g.net.LocalPeer()
	n := 0
	for _, e := range w.sorted() {
		if e.Owner() != 0 && e.Owner() == local && w.NetDestroy(e) {
			n++
		}
	}
	return n
}

// Clear removes every entity locally
func (w *World) Clear() {
	for _, e := range w.sorted() {
		w.Remove(e.ID())
	}
	clear(w.contacts)
}

// applyTransform keeps the highest sequence per entity; owners ignore
// updates for their own entities.
func (w *World) applyTransform(m *TransformMsg) {
	e, ok := w.entities[m.ID]
	if !ok || w.g.own.Controllable(e) {
		return
	}
	b := baseOf(e)
	if m.Seq <= b.seq {
		return
	}
	b.seq = m.Seq
	b.body = Body{
		Position:        m.Position,
		Heading:         NormalizeHeading(m.Heading),
		Velocity:        m.Velocity,
		AngularVelocity: m.AngularVelocity,
	}
	if b.smooth != nil {
		b.smooth.Retarget(b.body.Position, b.body.Heading)
	}
}

// step runs entity logic, integrates bodies and raises trigger enters
func (w *World) step(dt float64) {
	order := w.sorted()
	for _, e := range order {
		if t, ok := e.(Ticker); ok && !e.Removed() {
			t.FixedUpdate(dt)
		}
	}
	for _, e := range order {
		if e.Removed() {
			continue
		}
		b := e.Body()
		if b.Velocity != (Vec3{}) {
			b.Position = b.Position.Add(b.Velocity.Scale(dt))
		}
		if b.AngularVelocity != 0 {
			b.Heading = NormalizeHeading(b.Heading + b.AngularVelocity*dt)
		}
	}
	w.detectTriggers(order)
}

func (w *World) detectTriggers(order []Entity) {
	w.grid.Clear()
	for _, e := range order {
		if !e.Removed() && e.Radius() > 0 {
			w.grid.InsertCircle(e.Body().Position, e.Radius(), e.ID())
		}
	}
	current := make(map[[2]EntityID]struct{}, len(w.contacts))
	for _, a := range order {
		if _, ok := a.(Trigger); !ok || a.Removed() || a.Radius() <= 0 {
			continue
		}
		w.buf = w.grid.QueryBuf(a.Body().Position, a.Radius(), w.buf[:0])
		for _, id := range w.buf {
			if id == a.ID() {
				continue
			}
			b, ok := w.entities[id]
			if !ok || b.Removed() || a.Removed() {
				continue
			}
			key := pairKey(a.ID(), id)
			if _, seen := current[key]; seen {
				continue
			}
			if !CheckCollision(a.Body().Position, a.Radius(), b.Body().Position, b.Radius()) {
				continue
			}
			current[key] = struct{}{}
			if _, was := w.contacts[key]; was {
				continue
			}
			w.enter(a, b)
		}
	}
	w.contacts = current
}

func (w *World) enter(a, b Entity) {
	if t, ok := a.(Trigger); ok {
		t.OnTrigger(b)
	}
	if t, ok := b.(Trigger); ok && !a.Removed() && !b.Removed() {
		t.OnTrigger(a)
	}
	if log.IsLevelEnabled(log.TraceLevel) {
		w.g.log.WithFields(log.Fields{"a": a.ID(), "b": b.ID()}).Trace("trigger enter")
	}
}

func pairKey(a, b EntityID) [2]EntityID {
	if a > b {
		a, b = b, a
	}
	return [2]EntityID{a, b}
}

func baseOf(e Entity) *base {
	if c, ok := e.(interface{ core() *base }); ok {
		return c.core()
	}
	return nil
}

func (b *base) core() *base { return b }
