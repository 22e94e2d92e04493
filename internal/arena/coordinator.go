package arena

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Scene is which top-level scene a peer has loaded
type Scene uint8

const (
	SceneMenu Scene = iota
	SceneWorld
)

func (s Scene) String() string {
	if s == SceneWorld {
		return "world"
	}
	return "menu"
}

// Phase is the match lifecycle state
type Phase uint8

const (
	PhaseWaitingForPlayers Phase = iota
	PhaseSpawning
	PhasePlaying
	PhaseRoundOver
	PhaseRestarting
	PhaseReturningToMenu
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForPlayers:
		return "waiting"
	case PhaseSpawning:
		return "spawning"
	case PhasePlaying:
		return "playing"
	case PhaseRoundOver:
		return "round_over"
	case PhaseRestarting:
		return "restarting"
	case PhaseReturningToMenu:
		return "returning"
	}
	return "unknown"
}

// Slot is one side of the score board
type Slot struct {
	Peer     PeerID
	Nickname string
	Color    Color
	Score    int
}

// RoundResult is what a peer knows about a finished round
type RoundResult struct {
	Room          string
	Round         int
	Won           bool
	LocalScore    int
	OpponentScore int
	Opponent      string
	At            time.Time
}

// RoundRecorder persists finished rounds
type RoundRecorder interface {
	RecordRound(r RoundResult) error
}

// Coordinator runs the match lifecycle on one peer: loading the world,
// spawn assignment, loss reporting, scoring and restarts.
type Coordinator struct {
	g        *Game
	recorder RoundRecorder

	scene    Scene
	phase    Phase
	round    int
	loaded   int
	gameOver bool
	assigned bool
	paused   bool

	local    Slot
	opponent Slot
	restart  *Timer
}

func newCoordinator(g *Game, rec RoundRecorder) *Coordinator {
	return &Coordinator{g: g, recorder: rec}
}

// Scene returns the loaded scene
func (c *Coordinator) Scene() Scene { return c.scene }

// Phase returns the lifecycle state
func (c *Coordinator) Phase() Phase { return c.phase }

// Round returns the round number of the loaded world
func (c *Coordinator) Round() int { return c.loaded }

// GameOver reports whether the current round has been decided
func (c *Coordinator) GameOver() bool { return c.gameOver }

// Paused reports whether the game clock is stopped
func (c *Coordinator) Paused() bool { return c.paused }

// Local returns this peer's score slot
func (c *Coordinator) Local() Slot { return c.local }

// Opponent returns the other peer's score slot
func (c *Coordinator) Opponent() Slot { return c.opponent }

// Scores returns local and opponent scores
func (c *Coordinator) Scores() (int, int) { return c.local.Score, c.opponent.Score }

func (c *Coordinator) setScene(s Scene) {
	if c.scene == s {
		return
	}
	c.scene = s
	c.g.events.Dispatch(Event{Type: EventSceneChanged, Text: s.String()})
}

// LoadWorld enters the world scene for round 1 (or the current round when
// already playing) and tries to spawn.
func (c *Coordinator) LoadWorld() {
	c.setScene(SceneWorld)
	if c.round == 0 {
		c.round = 1
	}
	c.local.Peer = c.g.net.LocalPeer()
	c.reload(c.round)
}

// reload tears the world down and rebuilds it for round r
func (c *Coordinator) reload(r int) {
	c.g.sched.CancelAll()
	c.restart = nil
	c.g.world.Clear()
	c.round, c.loaded = r, r
	c.gameOver = false
	c.assigned = false
	c.phase = PhaseWaitingForPlayers
	c.g.world.LoadLayout(c.g.layout)
	c.g.log.WithField("round", r).Info("world loaded")
	c.TrySpawn()
}

// applyReload handles ReloadWorld; anything not newer than the loaded
// round is a duplicate.
func (c *Coordinator) applyReload(r int) {
	if c.scene != SceneWorld || r <= c.loaded {
		return
	}
	c.reload(r)
}

// TrySpawn starts the round once enough players are present. Only the
// master picks spawn points; offline play spawns a single tank.
func (c *Coordinator) TrySpawn() {
	if c.scene != SceneWorld || c.phase != PhaseWaitingForPlayers {
		return
	}
	if !c.g.net.Connected() {
		idx, err := PickSpawnIndices(c.g.rng, len(c.g.layout.SpawnPoints), 1)
		if err != nil {
			c.g.log.WithError(err).Error("pick spawn")
			return
		}
		c.spawnOwn(RoleFirst, idx[0])
		c.phase = PhasePlaying
		return
	}
	if !c.g.net.IsMaster() || c.g.net.PlayerCount() < RequiredPlayers || c.opponent.Peer == 0 {
		return
	}
	idx, err := PickSpawnIndices(c.g.rng, len(c.g.layout.SpawnPoints), RequiredPlayers)
	if err != nil {
		c.g.log.WithError(err).Error("pick spawn")
		return
	}
	c.phase = PhaseSpawning
	c.spawnOwn(RoleFirst, idx[0])
	c.g.rpc(TargetPeer, c.opponent.Peer, Message{Kind: MsgSpawnAssignment, Assignment: &SpawnAssignmentMsg{
		Round: c.loaded,
		Index: idx[1],
		Role:  RoleSecond,
	}})
	c.phase = PhasePlaying
}

func (c *Coordinator) spawnOwn(role Role, index int) {
	sp := c.g.layout.SpawnPoints[index]
	c.g.world.Instantiate(SpawnMsg{
		Kind:     KindTank,
		Position: sp.Position,
		Heading:  float64(sp.Facing),
		Layer:    RoleLayer(role),
		Role:     role,
	})
	c.assigned = true
	c.local.Color = RoleColor(role)
	if role == RoleFirst {
		c.opponent.Color = RoleColor(RoleSecond)
	} else {
		c.opponent.Color = RoleColor(RoleFirst)
	}
	c.g.log.WithFields(log.Fields{"round": c.loaded, "spawn": index, "role": role}).Info("spawned tank")
}

// OnSpawnAssignment spawns this peer's tank where the master said
func (c *Coordinator) OnSpawnAssignment(m SpawnAssignmentMsg) {
	if c.scene != SceneWorld || m.Round < c.loaded {
		return
	}
	if m.Round > c.loaded {
		c.reload(m.Round)
	}
	if c.assigned {
		return
	}
	if m.Index < 0 || m.Index >= len(c.g.layout.SpawnPoints) {
		c.g.log.WithField("index", m.Index).Warn("spawn assignment out of range")
		return
	}
	c.spawnOwn(m.Role, m.Index)
	c.phase = PhasePlaying
}

// ReportLoss runs on the owner of a destroyed tank: the opponent scores
// and is told it won.
func (c *Coordinator) ReportLoss(t *Tank) {
	if c.scene != SceneWorld || c.gameOver || !c.g.own.Controllable(t) {
		return
	}
	c.gameOver = true
	c.phase = PhaseRoundOver
	c.opponent.Score++
	c.g.rpc(TargetOthers, 0, Message{Kind: MsgWinNotice, Win: &WinNoticeMsg{Round: c.loaded}})
	c.finishRound(false)
}

// OnWinNotice credits the local peer with the round
func (c *Coordinator) OnWinNotice(m WinNoticeMsg) {
	if c.scene != SceneWorld || m.Round != c.loaded || c.gameOver {
		return
	}
	c.gameOver = true
	c.phase = PhaseRoundOver
	c.local.Score++
	c.finishRound(true)
}

func (c *Coordinator) finishRound(won bool) {
	c.g.log.WithFields(log.Fields{
		"round": c.loaded,
		"won":   won,
		"score": c.local.Score,
		"opp":   c.opponent.Score,
	}).Info("round over")
	text := "You lost"
	if won {
		text = "You won"
	}
	c.g.events.Dispatch(Event{Type: EventRoundOver, Text: text, Won: won})
	if c.recorder != nil {
		err := c.recorder.RecordRound(RoundResult{
			Room:          c.g.lobby.room,
			Round:         c.loaded,
			Won:           won,
			LocalScore:    c.local.Score,
			OpponentScore: c.opponent.Score,
			Opponent:      c.opponent.Nickname,
			At:            time.Now(),
		})
		if err != nil {
			c.g.log.WithError(err).Warn("record round")
		}
	}
	c.scheduleRestart()
}

// scheduleRestart arms the master's reload. It runs on the real clock so a
// paused master still restarts.
func (c *Coordinator) scheduleRestart() {
	if !c.g.own.IsMaster() || c.restart.Pending() {
		return
	}
	c.restart = c.g.sched.After(RealClock, RestartDelay, c.restartRound)
}

func (c *Coordinator) restartRound() {
	if c.scene != SceneWorld || !c.g.own.IsMaster() {
		return
	}
	c.phase = PhaseRestarting
	c.g.rpc(TargetAll, 0, Message{Kind: MsgReloadWorld, Reload: &ReloadWorldMsg{Round: c.loaded + 1}})
}

// setRoster records who is in the room besides the local peer
func (c *Coordinator) setRoster(local PeerID, peers []PeerInfo) {
	c.local.Peer = local
	c.opponent.Peer, c.opponent.Nickname = 0, ""
	for _, p := range peers {
		if p.ID == local {
			c.local.Nickname = p.Nickname
			continue
		}
		c.opponent.Peer, c.opponent.Nickname = p.ID, p.Nickname
	}
}

// OnPeerJoined records the opponent and starts the round when ready
func (c *Coordinator) OnPeerJoined(p PeerInfo) {
	c.opponent.Peer, c.opponent.Nickname = p.ID, p.Nickname
	c.TrySpawn()
}

// OnPeerLeft tears the round down and waits for a new opponent
func (c *Coordinator) OnPeerLeft(p PeerInfo) {
	if p.ID == c.opponent.Peer {
		c.opponent = Slot{}
	}
	c.local.Score = 0
	if c.scene != SceneWorld {
		return
	}
	c.g.events.Dispatch(Event{Type: EventNotice, Text: "Opponent left"})
	c.reload(c.loaded + 1)
}

// OnMasterChanged re-arms a pending restart on a newly promoted master
func (c *Coordinator) OnMasterChanged() {
	if c.scene == SceneWorld && c.gameOver {
		c.scheduleRestart()
	}
	c.TrySpawn()
}

// LeaveRoom releases everything this peer owns and asks to leave
func (c *Coordinator) LeaveRoom() error {
	if c.scene != SceneWorld {
		return nil
	}
	c.g.world.ReleaseOwned()
	c.phase = PhaseReturningToMenu
	if !c.g.net.Connected() || c.g.lobby.rooms == nil {
		c.ReturnToMenu()
		return nil
	}
	return c.g.lobby.rooms.LeaveRoom()
}

// ReturnToMenu drops the world and all match state
func (c *Coordinator) ReturnToMenu() {
	c.g.sched.CancelAll()
	c.restart = nil
	c.g.world.Clear()
	c.round, c.loaded = 0, 0
	c.gameOver, c.assigned = false, false
	c.local, c.opponent = Slot{}, Slot{}
	c.SetPaused(false)
	c.phase = PhaseReturningToMenu
	c.setScene(SceneMenu)
}

// OnDisconnected returns to the menu with the reason shown
func (c *Coordinator) OnDisconnected(reason string) {
	c.ReturnToMenu()
	if reason != "" {
		c.g.events.Dispatch(Event{Type: EventNotice, Text: reason})
	}
}

// SetPaused stops or resumes the game clock. It has no effect outside the
// world scene.
func (c *Coordinator) SetPaused(p bool) {
	if p && c.scene != SceneWorld {
		return
	}
	c.paused = p
	if p {
		c.g.timeScale = 0
	} else {
		c.g.timeScale = 1
	}
}
