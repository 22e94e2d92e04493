package arena

// PeerID is the actor number the relay assigns to a peer inside a room.
// Zero means "no peer": scene objects and everything in offline mode.
type PeerID int32

// EntityID is the network identity of a replicated entity, the same on
// every peer.
type EntityID int32

// IDStride separates the ID ranges of entities instantiated by different
// peers. Scene entities use 1..IDStride-1.
const IDStride = 10000

// idOwner returns the peer whose range contains id, -1 for scene IDs
func idOwner(id EntityID) PeerID {
	return PeerID(int32(id)/IDStride - 1)
}

// Kind identifies what an entity is
type Kind uint8

const (
	KindTank Kind = iota + 1
	KindBullet
	KindDestructible
	KindPowerup
	KindExplosion
	KindWall
)

func (k Kind) String() string {
	switch k {
	case KindTank:
		return "tank"
	case KindBullet:
		return "bullet"
	case KindDestructible:
		return "destructible"
	case KindPowerup:
		return "powerup"
	case KindExplosion:
		return "explosion"
	case KindWall:
		return "wall"
	}
	return "unknown"
}

// Layer is a collision layer. Bullets only damage tanks on another layer.
type Layer uint8

const (
	LayerDefault  Layer = 0
	LayerObstacle Layer = 8
	LayerTankA    Layer = 9
	LayerTankB    Layer = 10
)

// Body is the kinematic state replicated for an entity
type Body struct {
	Position        Vec3
	Heading         float64 // degrees, [0, 360)
	Velocity        Vec3
	AngularVelocity float64 // degrees per second around Y
}

// Entity is a replicated game object
type Entity interface {
	ID() EntityID
	Owner() PeerID
	Kind() Kind
	Layer() Layer
	Radius() float64
	Body() *Body
	Removed() bool
}

// Trigger is implemented by entities that react to overlapping another entity
type Trigger interface {
	OnTrigger(other Entity)
}

// Ticker is implemented by entities with a fixed-step update
type Ticker interface {
	FixedUpdate(dt float64)
}

// base holds what every entity carries
type base struct {
	id      EntityID
	owner   PeerID
	kind    Kind
	layer   Layer
	radius  float64
	body    Body
	removed bool
	seq     uint32 // last applied transform sequence
	smooth  *Smoother
}

func (b *base) ID() EntityID    { return b.id }
func (b *base) Owner() PeerID   { return b.owner }
func (b *base) Kind() Kind      { return b.kind }
func (b *base) Layer() Layer    { return b.layer }
func (b *base) Radius() float64 { return b.radius }
func (b *base) Body() *Body     { return &b.body }
func (b *base) Removed() bool   { return b.removed }

// RenderPosition returns the smoothed position for mirrors, or the body
// position when no smoothing is active.
func (b *base) RenderPosition() (Vec3, float64) {
	if b.smooth == nil {
		return b.body.Position, b.body.Heading
	}
	return b.smooth.Position(), b.smooth.Heading()
}

func (b *base) markRemoved() bool {
	if b.removed {
		return false
	}
	b.removed = true
	return true
}

// Wall is a static obstacle from the layout. It has no behaviour.
type Wall struct {
	base
}
