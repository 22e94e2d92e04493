package arena

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultNickname is used until the player picks one
const DefaultNickname = "Player"

// RoomOptions describe a room to create
type RoomOptions struct {
	MaxPlayers int
	Visible    bool
	Passphrase string
}

// RoomService is the matchmaking side of the transport. Calls are requests;
// outcomes come back as RoomEvents through Game.Enqueue.
type RoomService interface {
	Connect(nickname string) error
	JoinRandom() error
	CreateRoom(name string, opts RoomOptions) error
	JoinOrCreate(name string, opts RoomOptions) error
	LeaveRoom() error
	Disconnect() error
}

// Settings persists player preferences
type Settings interface {
	Nickname() (string, error)
	SetNickname(name string) error
}

// RoomEventKind enumerates room lifecycle callbacks
type RoomEventKind uint8

const (
	RoomConnected RoomEventKind = iota + 1
	RoomJoinRandomFailed
	RoomCreateFailed
	RoomJoinFailed
	RoomJoined
	RoomLeft
	RoomPeerJoined
	RoomPeerLeft
	RoomMasterChanged
	RoomDisconnected
)

// PeerInfo identifies a room member
type PeerInfo struct {
	ID       PeerID
	Nickname string
}

// RoomEvent is a lifecycle callback from the room service
type RoomEvent struct {
	Kind    RoomEventKind
	Code    int
	Message string
	Room    string
	Local   PeerID
	Peer    PeerInfo
	Peers   []PeerInfo
}

// MenuState is what the lobby is showing
type MenuState uint8

const (
	MenuMain MenuState = iota
	MenuConnecting
	MenuRooms
	MenuInRoom
)

func (m MenuState) String() string {
	switch m {
	case MenuMain:
		return "main"
	case MenuConnecting:
		return "connecting"
	case MenuRooms:
		return "rooms"
	case MenuInRoom:
		return "in_room"
	}
	return "unknown"
}

// Lobby drives connect and matchmaking and hands over to the coordinator
// once a room is joined.
type Lobby struct {
	g        *Game
	rooms    RoomService
	settings Settings

	nickname string
	roomName string
	room     string
	state    MenuState
	lastErr  string
}

func newLobby(g *Game, rooms RoomService, settings Settings) *Lobby {
	l := &Lobby{g: g, rooms: rooms, settings: settings, nickname: DefaultNickname}
	if settings != nil {
		name, err := settings.Nickname()
		switch {
		case err != nil:
			g.log.WithError(err).Warn("load nickname")
		case strings.TrimSpace(name) != "":
			l.nickname = name
		}
	}
	return l
}

// State returns the visible menu
func (l *Lobby) State() MenuState { return l.state }

// Nickname returns the current player name
func (l *Lobby) Nickname() string { return l.nickname }

// Room returns the joined room name, empty outside a room
func (l *Lobby) Room() string { return l.room }

// LastError returns the most recent failure shown to the player
func (l *Lobby) LastError() string { return l.lastErr }

func (l *Lobby) setState(s MenuState) {
	if l.state == s {
		return
	}
	l.state = s
	l.g.events.Dispatch(Event{Type: EventMenuChanged, Text: s.String()})
}

func (l *Lobby) fail(msg string) {
	l.lastErr = msg
	l.g.events.Dispatch(Event{Type: EventNotice, Text: msg})
}

// SetNickname changes and persists the player name. A blank name is
// rejected and disables connecting.
func (l *Lobby) SetNickname(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		l.nickname = ""
		return ErrInvalidName
	}
	l.nickname = name
	if l.settings != nil {
		if err := l.settings.SetNickname(name); err != nil {
			return fmt.Errorf("save nickname: %w", err)
		}
	}
	return nil
}

// CanConnect reports whether the connect action is enabled
func (l *Lobby) CanConnect() bool {
	return l.nickname != "" && l.state == MenuMain
}

// SetRoomName sets the name used by JoinOrCreate
func (l *Lobby) SetRoomName(name string) error {
	name = strings.TrimSpace(name)
	l.roomName = name
	if name == "" {
		return ErrInvalidName
	}
	return nil
}

// CanCreate reports whether the create/join-by-name action is enabled
func (l *Lobby) CanCreate() bool {
	return l.roomName != "" && l.state == MenuRooms
}

// Connect starts connecting to the room service
func (l *Lobby) Connect() error {
	if l.rooms == nil {
		return ErrNotConnected
	}
	if l.nickname == "" {
		return ErrInvalidName
	}
	l.setState(MenuConnecting)
	if err := l.rooms.Connect(l.nickname); err != nil {
		l.setState(MenuMain)
		l.fail(err.Error())
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// JoinRandom joins any open room; failure falls back to creating one
func (l *Lobby) JoinRandom() error {
	if l.rooms == nil {
		return ErrNotConnected
	}
	return l.rooms.JoinRandom()
}

// JoinOrCreate joins the named room, creating a hidden one if needed
func (l *Lobby) JoinOrCreate() error {
	if l.rooms == nil {
		return ErrNotConnected
	}
	if l.roomName == "" {
		return ErrInvalidName
	}
	return l.rooms.JoinOrCreate(l.roomName, RoomOptions{MaxPlayers: RequiredPlayers})
}

// Return disconnects and goes back to the main menu
func (l *Lobby) Return() error {
	if l.rooms == nil {
		l.setState(MenuMain)
		return nil
	}
	return l.rooms.Disconnect()
}

// PlayOffline loads the world without a connection
func (l *Lobby) PlayOffline() {
	l.g.match.LoadWorld()
}

func (l *Lobby) handle(ev RoomEvent) {
	logger := l.g.log.WithFields(log.Fields{"event": ev.Kind, "room": ev.Room})
	switch ev.Kind {
	case RoomConnected:
		logger.Info("connected")
		l.lastErr = ""
		l.setState(MenuRooms)

	case RoomJoinRandomFailed:
		logger.WithField("code", ev.Code).Info("no random room, creating one")
		if err := l.rooms.CreateRoom("", RoomOptions{MaxPlayers: RequiredPlayers, Visible: true}); err != nil {
			l.fail(err.Error())
		}

	case RoomCreateFailed, RoomJoinFailed:
		logger.WithField("code", ev.Code).Warn(ev.Message)
		l.fail("Could not create room: " + ev.Message)

	case RoomJoined:
		logger.WithField("peers", len(ev.Peers)).Info("joined room")
		l.room = ev.Room
		l.setState(MenuInRoom)
		l.g.match.setRoster(ev.Local, ev.Peers)
		l.g.match.LoadWorld()

	case RoomPeerJoined:
		logger.WithField("peer", ev.Peer.ID).Info("peer joined")
		l.g.match.OnPeerJoined(ev.Peer)

	case RoomPeerLeft:
		logger.WithField("peer", ev.Peer.ID).Info("peer left")
		l.g.match.OnPeerLeft(ev.Peer)

	case RoomMasterChanged:
		logger.Info("master changed")
		l.g.match.OnMasterChanged()

	case RoomLeft:
		logger.Info("left room")
		l.room = ""
		l.g.match.ReturnToMenu()
		l.setState(MenuRooms)

	case RoomDisconnected:
		logger.WithField("reason", ev.Message).Warn("disconnected")
		l.room = ""
		l.g.match.OnDisconnected(ev.Message)
		l.setState(MenuMain)
		if ev.Message != "" {
			l.lastErr = ev.Message
		}
	}
}
