package arena

import (
	"io"
	"math/rand/v2"
	"slices"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// loopback is an in-memory room: every Send is delivered straight into the
// addressed peers' inboxes.
type loopback struct {
	peers  map[PeerID]*loopNet
	master PeerID
	sent   []sentMsg
}

type sentMsg struct {
	from, to PeerID
	msg      Message
}

type loopNet struct {
	room *loopback
	id   PeerID
	game *Game
}

func newLoopback() *loopback {
	return &loopback{peers: make(map[PeerID]*loopNet)}
}

func (n *loopNet) Connected() bool   { return n.room.peers[n.id] != nil }
func (n *loopNet) LocalPeer() PeerID { return n.id }
func (n *loopNet) IsMaster() bool    { return n.room.master == n.id }
func (n *loopNet) PlayerCount() int  { return len(n.room.peers) }

func (n *loopNet) Send(target Target, to PeerID, payload []byte) error {
	var dst []PeerID
	switch target {
	case TargetOthers:
		for id := range n.room.peers {
			if id != n.id {
				dst = append(dst, id)
			}
		}
	case TargetMaster:
		dst = []PeerID{n.room.master}
	case TargetPeer:
		dst = []PeerID{to}
	}
	slices.Sort(dst)
	m, err := Decode(payload)
	if err != nil {
		return err
	}
	for _, id := range dst {
		p := n.room.peers[id]
		if p == nil {
			continue
		}
		n.room.sent = append(n.room.sent, sentMsg{from: n.id, to: id, msg: m})
		p.game.Enqueue(Inbound{From: n.id, Payload: slices.Clone(payload)})
	}
	return nil
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func newTestGame(net Network, seed uint64) *Game {
	return New(Options{
		Network: net,
		Rand:    rand.New(rand.NewPCG(seed, seed+1)),
		Logger:  quietLogger(),
	})
}

// join adds a peer to the room and raises the same events the relay would
func (r *loopback) join(id PeerID, nick string, seed uint64) *Game {
	n := &loopNet{room: r, id: id}
	n.game = newTestGame(n, seed)
	if r.master == 0 {
		r.master = id
	}
	r.peers[id] = n

	var roster []PeerInfo
	ids := make([]PeerID, 0, len(r.peers))
	for pid := range r.peers {
		ids = append(ids, pid)
	}
	slices.Sort(ids)
	for _, pid := range ids {
		roster = append(roster, PeerInfo{ID: pid, Nickname: nickOf(pid, id, nick)})
	}
	n.game.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomJoined, Room: "test", Local: id, Peers: roster}})
	for _, pid := range ids {
		if pid != id {
			r.peers[pid].game.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomPeerJoined, Peer: PeerInfo{ID: id, Nickname: nick}}})
		}
	}
	return n.game
}

func nickOf(pid, joining PeerID, nick string) string {
	if pid == joining {
		return nick
	}
	return "peer"
}

// leave removes a peer and promotes the lowest remaining one
func (r *loopback) leave(id PeerID) {
	delete(r.peers, id)
	if r.master == id {
		r.master = 0
		for pid := range r.peers {
			if r.master == 0 || pid < r.master {
				r.master = pid
			}
		}
		if p := r.peers[r.master]; p != nil {
			p.game.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomMasterChanged}})
		}
	}
	for _, p := range r.peers {
		p.game.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomPeerLeft, Peer: PeerInfo{ID: id}}})
	}
}

// settle pumps every peer until no traffic is left
func (r *loopback) settle(t *testing.T) {
	t.Helper()
	for i := 0; i < 50; i++ {
		busy := false
		ids := make([]PeerID, 0, len(r.peers))
		for id := range r.peers {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			g := r.peers[id].game
			g.inboxMu.Lock()
			n := len(g.inbox)
			g.inboxMu.Unlock()
			if n > 0 {
				busy = true
				g.Pump()
			}
		}
		if !busy {
			return
		}
	}
	t.Fatal("loopback did not settle")
}

func (r *loopback) count(kind MsgKind) int {
	n := 0
	for _, s := range r.sent {
		if s.msg.Kind == kind {
			n++
		}
	}
	return n
}

// startMatch joins two peers and settles; peer 1 is master
func startMatch(t *testing.T) (*loopback, *Game, *Game) {
	t.Helper()
	r := newLoopback()
	a := r.join(1, "alice", 1)
	r.settle(t)
	b := r.join(2, "bob", 2)
	r.settle(t)
	require.Len(t, a.World().Tanks(), 2)
	require.Len(t, b.World().Tanks(), 2)
	return r, a, b
}

func ownTank(t *testing.T, g *Game) *Tank {
	t.Helper()
	for _, tk := range g.World().Tanks() {
		if tk.Owner() == g.net.LocalPeer() {
			return tk
		}
	}
	t.Fatal("no own tank")
	return nil
}
