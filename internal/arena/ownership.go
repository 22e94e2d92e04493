package arena

// Network is the replication transport seen by the core. Implementations
// deliver inbound traffic by calling Game.Enqueue.
type Network interface {
	Connected() bool
	LocalPeer() PeerID
	IsMaster() bool
	PlayerCount() int
	// Send delivers payload to the peers addressed by target. TargetAll is
	// never passed: the core applies its own copy and sends to TargetOthers.
	Send(target Target, to PeerID, payload []byte) error
}

// Target addresses a replicated call
type Target uint8

const (
	TargetAll Target = iota
	TargetOthers
	TargetMaster
	TargetPeer
)

func (t Target) String() string {
	switch t {
	case TargetAll:
		return "all"
	case TargetOthers:
		return "others"
	case TargetMaster:
		return "master"
	case TargetPeer:
		return "peer"
	}
	return "unknown"
}

// Offline is the Network used before connecting or for practice play.
// Everything is local and everything is controllable.
type Offline struct{}

func (Offline) Connected() bool                   { return false }
func (Offline) LocalPeer() PeerID                 { return 0 }
func (Offline) IsMaster() bool                    { return true }
func (Offline) PlayerCount() int                  { return 1 }
func (Offline) Send(Target, PeerID, []byte) error { return ErrNotConnected }

// Ownership decides whether the local peer may apply authoritative
// mutations to an entity.
type Ownership struct {
	net Network
}

// NewOwnership creates the policy for a network
func NewOwnership(net Network) Ownership {
	return Ownership{net: net}
}

// Controllable reports whether e is driven by this process: owned by the
// local peer, or a scene object while the local peer is master. Without a
// room, entities with a remote owner stay mirrors until the world is torn
// down.
func (o Ownership) Controllable(e Entity) bool {
	if o.net == nil {
		return e.Owner() == 0
	}
	if !o.net.Connected() {
		return e.Owner() == 0 || e.Owner() == o.net.LocalPeer()
	}
	if e.Owner() == 0 {
		return o.net.IsMaster()
	}
	return e.Owner() == o.net.LocalPeer()
}

// IsMaster reports whether this process makes globally binding decisions
func (o Ownership) IsMaster() bool {
	if o.net == nil || !o.net.Connected() {
		return true
	}
	return o.net.IsMaster()
}
