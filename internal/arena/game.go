package arena

import (
	"math/rand/v2"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Controls is the input sampled once per frame for the local tank
type Controls struct {
	Left     bool
	Right    bool
	Fire     bool
	Vertical float64 // -1..1
}

// Inbound is something the transport received: either a replicated
// message from a peer or a room lifecycle event.
type Inbound struct {
	From    PeerID
	Payload []byte
	Room    *RoomEvent
}

// Options configures a Game
type Options struct {
	Network  Network
	Rooms    RoomService
	Settings Settings
	Recorder RoundRecorder
	Tuning   Tuning
	Layout   Layout
	Rand     *rand.Rand
	Logger   *log.Entry
}

// Game wires one peer's replicated world, match coordinator and lobby.
// Everything except Enqueue must be called from the simulation goroutine.
type Game struct {
	net    Network
	own    Ownership
	sched  *Scheduler
	events *Dispatcher
	world  *World
	match  *Coordinator
	lobby  *Lobby
	tuning Tuning
	layout Layout
	rng    *rand.Rand
	log    *log.Entry

	inboxMu sync.Mutex
	inbox   []Inbound

	timeScale float64
	sendAcc   float64
	sendSeq   uint32
}

// New builds a Game. Missing options fall back to offline play with the
// default tuning and layout.
func New(opts Options) *Game {
	if opts.Network == nil {
		opts.Network = Offline{}
	}
	if opts.Tuning == (Tuning{}) {
		opts.Tuning = DefaultTuning()
	}
	if len(opts.Layout.SpawnPoints) == 0 {
		opts.Layout = DefaultLayout()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	g := &Game{
		net:       opts.Network,
		own:       NewOwnership(opts.Network),
		sched:     NewScheduler(),
		events:    NewDispatcher(),
		tuning:    opts.Tuning,
		layout:    opts.Layout,
		rng:       opts.Rand,
		log:       opts.Logger,
		timeScale: 1,
	}
	g.world = newWorld(g)
	g.match = newCoordinator(g, opts.Recorder)
	g.lobby = newLobby(g, opts.Rooms, opts.Settings)
	return g
}

// World returns the entity registry
func (g *Game) World() *World { return g.world }

// Match returns the match coordinator
func (g *Game) Match() *Coordinator { return g.match }

// Lobby returns the room lifecycle handler
func (g *Game) Lobby() *Lobby { return g.lobby }

// Scheduler returns the simulation timers
func (g *Game) Scheduler() *Scheduler { return g.sched }

// Ownership returns the controllable predicate
func (g *Game) Ownership() Ownership { return g.own }

// Subscribe registers a listener for presentation events
func (g *Game) Subscribe(t EventType, l Listener) { g.events.Subscribe(t, l) }

// Enqueue hands inbound traffic to the simulation. Safe for concurrent use.
func (g *Game) Enqueue(in Inbound) {
	g.inboxMu.Lock()
	g.inbox = append(g.inbox, in)
	g.inboxMu.Unlock()
}

// Pump processes everything enqueued so far, in arrival order
func (g *Game) Pump() {
	g.inboxMu.Lock()
	batch := g.inbox
	g.inbox = nil
	g.inboxMu.Unlock()

	for _, in := range batch {
		if in.Room != nil {
			g.lobby.handle(*in.Room)
			continue
		}
		m, err := Decode(in.Payload)
		if err != nil {
			g.log.WithField("from", in.From).WithError(err).Warn("dropping message")
			continue
		}
		g.apply(in.From, m)
	}
}

// FixedUpdate runs one physics step: entity logic, integration, triggers,
// then game-clock timers.
func (g *Game) FixedUpdate(dt time.Duration) {
	g.world.step(dt.Seconds())
	g.sched.Advance(GameClock, dt)
}

// FrameUpdate runs one presentation step: input for controllable tanks,
// mirror smoothing and transform replication.
func (g *Game) FrameUpdate(dt time.Duration, in Controls) {
	if !g.match.paused {
		for _, t := range g.world.Tanks() {
			t.HandleInput(in)
		}
	}
	secs := dt.Seconds()
	for _, e := range g.world.entities {
		if b := baseOf(e); b != nil && b.smooth != nil {
			b.smooth.Update(secs)
		}
	}
	g.sendAcc += secs
	if g.sendAcc >= 1.0/TransformSendRate {
		g.sendAcc = 0
		g.replicateTransforms()
	}
}

func (g *Game) replicateTransforms() {
	if !g.net.Connected() {
		return
	}
	g.sendSeq++
	for _, e := range g.world.sorted() {
		if e.Kind() != KindTank || e.Owner() == 0 || !g.own.Controllable(e) {
			continue
		}
		b := e.Body()
		g.rpc(TargetOthers, 0, Message{Kind: MsgTransform, Transform: &TransformMsg{
			ID:              e.ID(),
			Seq:             g.sendSeq,
			Position:        b.Position,
			Heading:         b.Heading,
			Velocity:        b.Velocity,
			AngularVelocity: b.AngularVelocity,
		}})
	}
}

// rpc routes a replicated call. TargetAll and calls addressed to the local
// peer are applied here first.
func (g *Game) rpc(target Target, to PeerID, m Message) {
	local := g.net.LocalPeer()
	switch target {
	case TargetAll:
		g.apply(local, m)
		g.send(TargetOthers, 0, m)
	case TargetOthers:
		g.send(TargetOthers, 0, m)
	case TargetMaster:
		if g.own.IsMaster() {
			g.apply(local, m)
			return
		}
		g.send(TargetMaster, 0, m)
	case TargetPeer:
		if to == local {
			g.apply(local, m)
			return
		}
		g.send(TargetPeer, to, m)
	}
}

func (g *Game) send(target Target, to PeerID, m Message) {
	if !g.net.Connected() {
		return
	}
	b, err := Encode(m)
	if err != nil {
		g.log.WithError(err).Error("encode message")
		return
	}
	if err := g.net.Send(target, to, b); err != nil {
		g.log.WithFields(log.Fields{"kind": m.Kind, "target": target}).WithError(err).Warn("send failed")
	}
}
