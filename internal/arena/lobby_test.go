package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct {
	connects []string
	randoms  int
	creates  []RoomOptions
	named    []string
	leaves   int
	disc     int
	err      error
}

func (f *fakeRooms) Connect(nick string) error {
	f.connects = append(f.connects, nick)
	return f.err
}
func (f *fakeRooms) JoinRandom() error { f.randoms++; return f.err }
func (f *fakeRooms) CreateRoom(name string, opts RoomOptions) error {
	f.creates = append(f.creates, opts)
	return f.err
}
func (f *fakeRooms) JoinOrCreate(name string, opts RoomOptions) error {
	f.named = append(f.named, name)
	f.creates = append(f.creates, opts)
	return f.err
}
func (f *fakeRooms) LeaveRoom() error  { f.leaves++; return f.err }
func (f *fakeRooms) Disconnect() error { f.disc++; return f.err }

type memSettings struct{ name string }

func (m *memSettings) Nickname() (string, error)     { return m.name, nil }
func (m *memSettings) SetNickname(name string) error { m.name = name; return nil }

func newLobbyGame(rooms RoomService, settings Settings) *Game {
	return New(Options{Rooms: rooms, Settings: settings, Logger: quietLogger()})
}

func TestLobbyNicknameDefaultsAndPersists(t *testing.T) {
	s := &memSettings{}
	g := newLobbyGame(&fakeRooms{}, s)
	assert.Equal(t, DefaultNickname, g.Lobby().Nickname())

	require.NoError(t, g.Lobby().SetNickname("  tanker "))
	assert.Equal(t, "tanker", s.name)

	g2 := newLobbyGame(&fakeRooms{}, s)
	assert.Equal(t, "tanker", g2.Lobby().Nickname())
}

func TestLobbyBlankNicknameDisablesConnect(t *testing.T) {
	rooms := &fakeRooms{}
	g := newLobbyGame(rooms, nil)
	assert.True(t, g.Lobby().CanConnect())

	assert.ErrorIs(t, g.Lobby().SetNickname("   "), ErrInvalidName)
	assert.False(t, g.Lobby().CanConnect())
	assert.ErrorIs(t, g.Lobby().Connect(), ErrInvalidName)
	assert.Empty(t, rooms.connects)
}

func TestLobbyConnectFlow(t *testing.T) {
	rooms := &fakeRooms{}
	g := newLobbyGame(rooms, nil)
	var menus []string
	g.Subscribe(EventMenuChanged, ListenerFunc(func(e Event) { menus = append(menus, e.Text) }))

	require.NoError(t, g.Lobby().Connect())
	assert.Equal(t, []string{DefaultNickname}, rooms.connects)
	assert.Equal(t, MenuConnecting, g.Lobby().State())

	g.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomConnected}})
	g.Pump()
	assert.Equal(t, MenuRooms, g.Lobby().State())
	assert.Equal(t, []string{"connecting", "rooms"}, menus)
}

func TestLobbyConnectError(t *testing.T) {
	rooms := &fakeRooms{err: errors.New("dial refused")}
	g := newLobbyGame(rooms, nil)
	assert.Error(t, g.Lobby().Connect())
	assert.Equal(t, MenuMain, g.Lobby().State())
	assert.Equal(t, "dial refused", g.Lobby().LastError())
}

func TestLobbyRandomJoinFallsBackToCreate(t *testing.T) {
	rooms := &fakeRooms{}
	g := newLobbyGame(rooms, nil)
	require.NoError(t, g.Lobby().JoinRandom())

	g.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomJoinRandomFailed, Code: 32760}})
	g.Pump()

	require.Len(t, rooms.creates, 1)
	assert.Equal(t, RoomOptions{MaxPlayers: 2, Visible: true}, rooms.creates[0])
}

func TestLobbyJoinOrCreateNeedsName(t *testing.T) {
	rooms := &fakeRooms{}
	g := newLobbyGame(rooms, nil)
	assert.ErrorIs(t, g.Lobby().SetRoomName(" "), ErrInvalidName)
	assert.False(t, g.Lobby().CanCreate())
	assert.ErrorIs(t, g.Lobby().JoinOrCreate(), ErrInvalidName)

	require.NoError(t, g.Lobby().SetRoomName("duel"))
	require.NoError(t, g.Lobby().JoinOrCreate())
	assert.Equal(t, []string{"duel"}, rooms.named)
	assert.Equal(t, RoomOptions{MaxPlayers: 2}, rooms.creates[0])
}

func TestLobbyCreateFailureShowsMessage(t *testing.T) {
	g := newLobbyGame(&fakeRooms{}, nil)
	var notices []string
	g.Subscribe(EventNotice, ListenerFunc(func(e Event) { notices = append(notices, e.Text) }))

	g.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomCreateFailed, Code: 32766, Message: "room already exists"}})
	g.Pump()

	assert.Equal(t, "Could not create room: room already exists", g.Lobby().LastError())
	assert.Equal(t, []string{"Could not create room: room already exists"}, notices)
	assert.Equal(t, SceneMenu, g.Match().Scene())
}

func TestLobbyDisconnectReturnsToMenu(t *testing.T) {
	r, a, _ := startMatch(t)
	_ = r
	a.Enqueue(Inbound{Room: &RoomEvent{Kind: RoomDisconnected, Message: "connection lost"}})
	a.Pump()

	assert.Equal(t, SceneMenu, a.Match().Scene())
	assert.Equal(t, MenuMain, a.Lobby().State())
	assert.Zero(t, a.World().Len())
	assert.Zero(t, a.Scheduler().Pending())
	assert.Equal(t, "connection lost", a.Lobby().LastError())
}

func TestLobbyOfflineWithoutRooms(t *testing.T) {
	g := newLobbyGame(nil, nil)
	assert.ErrorIs(t, g.Lobby().Connect(), ErrNotConnected)
	g.Lobby().PlayOffline()
	assert.Len(t, g.World().Tanks(), 1)

	require.NoError(t, g.Match().LeaveRoom())
	assert.Equal(t, SceneMenu, g.Match().Scene())
	assert.Zero(t, g.World().Len())
}
