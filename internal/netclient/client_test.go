package netclient

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankarena/internal/arena"
	"tankarena/internal/protocol"
	"tankarena/internal/relay"
)

type recorder struct {
	ch chan arena.Inbound
}

func newRecorder() *recorder { return &recorder{ch: make(chan arena.Inbound, 64)} }

func (r *recorder) Enqueue(in arena.Inbound) { r.ch <- in }

func (r *recorder) next(t *testing.T) arena.Inbound {
	t.Helper()
	select {
	case in := <-r.ch:
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound")
	}
	return arena.Inbound{}
}

func (r *recorder) room(t *testing.T, kind arena.RoomEventKind) arena.RoomEvent {
	t.Helper()
	in := r.next(t)
	require.NotNil(t, in.Room, "got a data frame, want room event %d", kind)
	require.Equal(t, kind, in.Room.Kind, "event %+v", *in.Room)
	return *in.Room
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func startRelay(t *testing.T) string {
	t.Helper()
	hub := relay.NewHub(nil, nil, relay.Options{MaxConnsPerIP: 50})
	go hub.Run()
	srv := httptest.NewServer(relay.SetupRoutes(hub))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return srv.URL
}

func connect(t *testing.T, url, nick string) (*Client, *recorder) {
	t.Helper()
	c := New(url, quietLogger())
	rec := newRecorder()
	c.Attach(rec)
	require.NoError(t, c.Connect(nick))
	rec.room(t, arena.RoomConnected)
	t.Cleanup(func() { c.Disconnect() })
	return c, rec
}

func TestRoomLifecycle(t *testing.T) {
	url := startRelay(t)
	a, ra := connect(t, url, "alice")
	assert.False(t, a.Connected())
	assert.ErrorIs(t, a.Connect("alice"), ErrAlreadyConnected)

	require.NoError(t, a.JoinRandom())
	ev := ra.room(t, arena.RoomJoinRandomFailed)
	assert.Equal(t, protocol.CodeNoRandomMatch, ev.Code)

	require.NoError(t, a.CreateRoom("arena", arena.RoomOptions{Visible: true}))
	ev = ra.room(t, arena.RoomJoined)
	assert.Equal(t, "arena", ev.Room)
	assert.Equal(t, arena.PeerID(1), ev.Local)
	assert.True(t, a.Connected())
	assert.True(t, a.IsMaster())
	assert.Equal(t, 1, a.PlayerCount())

	b, rb := connect(t, url, "bob")
	require.NoError(t, b.JoinRandom())
	ev = rb.room(t, arena.RoomJoined)
	assert.Equal(t, arena.PeerID(2), ev.Local)
	assert.Len(t, ev.Peers, 2)
	assert.False(t, b.IsMaster())

	ev = ra.room(t, arena.RoomPeerJoined)
	assert.Equal(t, arena.PeerInfo{ID: 2, Nickname: "bob"}, ev.Peer)
	assert.Equal(t, 2, a.PlayerCount())

	require.NoError(t, a.Send(arena.TargetOthers, 0, []byte{1, 2, 3}))
	in := rb.next(t)
	assert.Nil(t, in.Room)
	assert.Equal(t, arena.PeerID(1), in.From)
	assert.Equal(t, []byte{1, 2, 3}, in.Payload)

	require.NoError(t, b.Send(arena.TargetMaster, 0, []byte{9}))
	in = ra.next(t)
	assert.Equal(t, arena.PeerID(2), in.From)

	require.NoError(t, a.LeaveRoom())
	ra.room(t, arena.RoomLeft)
	assert.False(t, a.Connected())

	rb.room(t, arena.RoomMasterChanged)
	assert.True(t, b.IsMaster())
	ev = rb.room(t, arena.RoomPeerLeft)
	assert.Equal(t, arena.PeerInfo{ID: 1, Nickname: "alice"}, ev.Peer)
	assert.Equal(t, 1, b.PlayerCount())

	require.NoError(t, b.Disconnect())
	ev = rb.room(t, arena.RoomDisconnected)
	assert.Empty(t, ev.Message)
	assert.ErrorIs(t, b.Send(arena.TargetOthers, 0, []byte{1}), arena.ErrNotConnected)
}

func TestConnectFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", quietLogger())
	rec := newRecorder()
	c.Attach(rec)
	require.NoError(t, c.Connect("alice"))
	ev := rec.room(t, arena.RoomDisconnected)
	assert.NotEmpty(t, ev.Message)
	assert.False(t, c.Connected())
}

func TestJoinFailureKinds(t *testing.T) {
	url := startRelay(t)
	c, rec := connect(t, url, "alice")

	require.NoError(t, c.JoinRoom("missing", ""))
	ev := rec.room(t, arena.RoomJoinFailed)
	assert.Equal(t, protocol.CodeGameNotFound, ev.Code)
	assert.NotEmpty(t, ev.Message)
}

// runUntil advances both games until cond holds
func runUntil(t *testing.T, loops []*arena.Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		for _, l := range loops {
			l.Advance(10*time.Millisecond, arena.Controls{})
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMatchOverRelay(t *testing.T) {
	url := startRelay(t)

	newPeer := func(nick string) (*arena.Game, *arena.Loop) {
		c := New(url, quietLogger())
		g := arena.New(arena.Options{Network: c, Rooms: c, Logger: quietLogger()})
		c.Attach(g)
		t.Cleanup(func() { c.Disconnect() })
		require.NoError(t, g.Lobby().SetNickname(nick))
		require.NoError(t, g.Lobby().Connect())
		return g, arena.NewLoop(g, arena.DefaultFixedStep)
	}

	ga, la := newPeer("alice")
	loops := []*arena.Loop{la}
	runUntil(t, loops, func() bool { return ga.Lobby().State() == arena.MenuRooms })
	require.NoError(t, ga.Lobby().JoinRandom())
	runUntil(t, loops, func() bool { return ga.Match().Scene() == arena.SceneWorld })
	assert.Equal(t, 0, ga.World().Count(arena.KindTank))

	gb, lb := newPeer("bob")
	loops = append(loops, lb)
	runUntil(t, loops, func() bool { return gb.Lobby().State() == arena.MenuRooms })
	require.NoError(t, gb.Lobby().JoinRandom())

	runUntil(t, loops, func() bool {
		return ga.World().Count(arena.KindTank) == 2 && gb.World().Count(arena.KindTank) == 2
	})
	assert.Equal(t, arena.PhasePlaying, ga.Match().Phase())
	assert.Equal(t, arena.PhasePlaying, gb.Match().Phase())
	assert.Equal(t, "bob", ga.Match().Opponent().Nickname)
	assert.Equal(t, "alice", gb.Match().Opponent().Nickname)

	for _, tank := range ga.World().Tanks() {
		assert.Equal(t, tank.Owner() == 1, ga.Ownership().Controllable(tank))
	}

	require.NoError(t, ga.Match().LeaveRoom())
	runUntil(t, loops, func() bool {
		return ga.Lobby().State() == arena.MenuRooms && gb.Ownership().IsMaster() && gb.World().Count(arena.KindTank) == 0
	})
	assert.Equal(t, arena.SceneMenu, ga.Match().Scene())
	assert.Equal(t, arena.PhaseWaitingForPlayers, gb.Match().Phase())
}
