package arena

// SchemaVersion stamps every replicated message. Peers drop messages with
// another version instead of guessing at their layout.
const SchemaVersion uint8 = 1

// MsgKind tags a replicated message and selects its payload schema
type MsgKind uint8

const (
	MsgSpawn MsgKind = iota + 1
	MsgDespawn
	MsgTransform
	MsgTakeDamage
	MsgDestroyObstacle
	MsgRemovePowerup
	MsgSpawnAssignment
	MsgWinNotice
	MsgReloadWorld
)

func (k MsgKind) String() string {
	switch k {
	case MsgSpawn:
		return "spawn"
	case MsgDespawn:
		return "despawn"
	case MsgTransform:
		return "transform"
	case MsgTakeDamage:
		return "take_damage"
	case MsgDestroyObstacle:
		return "destroy_obstacle"
	case MsgRemovePowerup:
		return "remove_powerup"
	case MsgSpawnAssignment:
		return "spawn_assignment"
	case MsgWinNotice:
		return "win_notice"
	case MsgReloadWorld:
		return "reload_world"
	}
	return "unknown"
}

// Message is a decoded replicated message. Exactly one payload field is
// set, the one matching Kind.
type Message struct {
	Kind MsgKind

	Spawn      *SpawnMsg
	Despawn    *DespawnMsg
	Transform  *TransformMsg
	Damage     *TakeDamageMsg
	Obstacle   *DestroyObstacleMsg
	Powerup    *RemovePowerupMsg
	Assignment *SpawnAssignmentMsg
	Win        *WinNoticeMsg
	Reload     *ReloadWorldMsg
}

// SpawnMsg creates a network-instantiated entity on every peer
type SpawnMsg struct {
	ID       EntityID `msgpack:"id"`
	Kind     Kind     `msgpack:"k"`
	Owner    PeerID   `msgpack:"o"`
	Position Vec3     `msgpack:"p"`
	Heading  float64  `msgpack:"h"`
	Velocity Vec3     `msgpack:"v"`
	Layer    Layer    `msgpack:"l"`
	Role     Role     `msgpack:"r,omitempty"`
	Round    int      `msgpack:"rd"`
}

// DespawnMsg removes a network-instantiated entity on every peer
type DespawnMsg struct {
	ID EntityID `msgpack:"id"`
}

// TransformMsg carries an owner's body state; mirrors keep the highest Seq
type TransformMsg struct {
	ID              EntityID `msgpack:"id"`
	Seq             uint32   `msgpack:"s"`
	Position        Vec3     `msgpack:"p"`
	Heading         float64  `msgpack:"h"`
	Velocity        Vec3     `msgpack:"v"`
	AngularVelocity float64  `msgpack:"av"`
}

// TakeDamageMsg applies one hit to a tank. Hit is the bullet that landed it,
// so a duplicated delivery is recognised.
type TakeDamageMsg struct {
	Tank   EntityID `msgpack:"t"`
	Amount float64  `msgpack:"a"`
	Hit    EntityID `msgpack:"hit"`
	Round  int      `msgpack:"rd"`
}

// DestroyObstacleMsg removes a destructible scene obstacle. Scene IDs are
// reused every round, so the round travels with the ID.
type DestroyObstacleMsg struct {
	ID    EntityID `msgpack:"id"`
	Round int      `msgpack:"rd"`
}

// RemovePowerupMsg asks the arbiter to remove a picked-up powerup
type RemovePowerupMsg struct {
	ID    EntityID `msgpack:"id"`
	Round int      `msgpack:"rd"`
}

// SpawnAssignmentMsg tells the non-master peer where to spawn its own tank
type SpawnAssignmentMsg struct {
	Round int  `msgpack:"rd"`
	Index int  `msgpack:"i"`
	Role  Role `msgpack:"r"`
}

// WinNoticeMsg tells the opponent it won the round
type WinNoticeMsg struct {
	Round int `msgpack:"rd"`
}

// ReloadWorldMsg restarts the world for a new round
type ReloadWorldMsg struct {
	Round int `msgpack:"rd"`
}
