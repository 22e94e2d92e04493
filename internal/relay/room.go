package relay

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tankarena/internal/protocol"
	"tankarena/internal/store"
)

const (
	maxRooms       = 500
	maxRoomNameLen = 32
)

// Room operation failures; each maps to a protocol failure code
var (
	ErrRoomFull       = errors.New("room is full")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNoRandomMatch  = errors.New("no open room")
	ErrRoomExists     = errors.New("room already exists")
	ErrBadPassphrase  = errors.New("wrong passphrase")
	ErrTooManyRooms   = errors.New("too many rooms")
	ErrAlreadyInRoom  = errors.New("already in a room")
	ErrInvalidRequest = errors.New("invalid request")
)

func failureCode(err error) int {
	switch {
	case errors.Is(err, ErrRoomFull):
		return protocol.CodeGameFull
	case errors.Is(err, ErrRoomNotFound):
		return protocol.CodeGameNotFound
	case errors.Is(err, ErrNoRandomMatch):
		return protocol.CodeNoRandomMatch
	case errors.Is(err, ErrRoomExists):
		return protocol.CodeGameExists
	case errors.Is(err, ErrBadPassphrase):
		return protocol.CodeBadPassphrase
	}
	return protocol.CodeInvalidRequest
}

// Room is a set of up to two peers sharing replicated traffic. The relay
// keeps no game state, only membership and the master actor.
type Room struct {
	ID       string
	Name     string
	Visible  bool
	passHash []byte
	seq      uint64

	members   []*Client // ordered by actor
	nextActor int32
	master    int32
}

func (r *Room) locked() bool { return len(r.passHash) > 0 }

func (r *Room) full() bool { return len(r.members) >= protocol.MaxPlayers }

func (r *Room) peers() []protocol.PeerInfo {
	out := make([]protocol.PeerInfo, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, protocol.PeerInfo{Actor: m.actor, Nickname: m.nickname})
	}
	return out
}

func (r *Room) member(actor int32) *Client {
	for _, m := range r.members {
		if m.actor == actor {
			return m
		}
	}
	return nil
}

// RoomManager handles creation, lookup and membership of rooms
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room // by name
	seq    uint64
	auth   *Auth
	events eventSink
}

type eventSink interface {
	Track(evtType, roomID string, actor int32, data string)
}

// NewRoomManager creates an empty manager
func NewRoomManager(auth *Auth, events eventSink) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		auth:   auth,
		events: events,
	}
}

func cleanRoomName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxRoomNameLen {
		name = string(r[:maxRoomNameLen])
	}
	return name
}

// Create makes a room and puts c in it as master
func (rm *RoomManager) Create(c *Client, msg protocol.CreateMsg) (*Room, error) {
	name := cleanRoomName(msg.Name)
	if name == "" {
		name = uuid.NewString()
	}
	var hash []byte
	if msg.Passphrase != "" {
		h, err := rm.auth.HashPassphrase(msg.Passphrase)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.room != nil {
		return nil, ErrAlreadyInRoom
	}
	if _, ok := rm.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	if len(rm.rooms) >= maxRooms {
		return nil, ErrTooManyRooms
	}
	rm.seq++
	r := &Room{
		ID:       uuid.NewString(),
		Name:     name,
		Visible:  msg.Visible,
		passHash: hash,
		seq:      rm.seq,
	}
	rm.rooms[name] = r
	rm.events.Track(store.EvtRoomCreated, r.ID, 0, "")
	log.WithFields(log.Fields{"room": r.Name, "id": r.ID, "visible": r.Visible}).Info("room created")
	rm.addLocked(r, c)
	return r, nil
}

// Join puts c into the named room
func (rm *RoomManager) Join(c *Client, msg protocol.JoinMsg) (*Room, error) {
	name := cleanRoomName(msg.Name)
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.room != nil {
		return nil, ErrAlreadyInRoom
	}
	r, ok := rm.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.full() {
		return nil, ErrRoomFull
	}
	if r.locked() && !rm.auth.CheckPassphrase(r.passHash, msg.Passphrase) {
		return nil, ErrBadPassphrase
	}
	rm.addLocked(r, c)
	return r, nil
}

// JoinRandom puts c into the oldest visible, open, non-full room
func (rm *RoomManager) JoinRandom(c *Client) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.room != nil {
		return nil, ErrAlreadyInRoom
	}
	var best *Room
	for _, r := range rm.rooms {
		if !r.Visible || r.locked() || r.full() {
			continue
		}
		if best == nil || r.seq < best.seq {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNoRandomMatch
	}
	rm.addLocked(best, c)
	return best, nil
}

// JoinOrCreate joins the named room or creates it
func (rm *RoomManager) JoinOrCreate(c *Client, msg protocol.JoinOrCreateMsg) (*Room, error) {
	name := cleanRoomName(msg.Name)
	if name == "" {
		return nil, ErrInvalidRequest
	}
	r, err := rm.Join(c, protocol.JoinMsg{Name: name})
	if errors.Is(err, ErrRoomNotFound) {
		r, err = rm.Create(c, protocol.CreateMsg{Name: name, Visible: msg.Visible})
		if errors.Is(err, ErrRoomExists) {
			// lost a race with another creator
			return rm.Join(c, protocol.JoinMsg{Name: name})
		}
	}
	return r, err
}

// addLocked adds c to r and announces it. rm.mu must be held.
func (rm *RoomManager) addLocked(r *Room, c *Client) {
	r.nextActor++
	c.actor = r.nextActor
	c.room = r
	r.members = append(r.members, c)
	if r.master == 0 {
		r.master = c.actor
	}
	rm.events.Track(store.EvtPeerJoined, r.ID, c.actor, "")
	log.WithFields(log.Fields{"room": r.Name, "actor": c.actor, "nick": c.nickname}).Info("peer joined")

	c.SendJSON(protocol.Envelope{T: protocol.MsgJoined, Data: protocol.JoinedMsg{
		Room:   r.Name,
		Actor:  c.actor,
		Master: r.master,
		Peers:  r.peers(),
	}})
	info := protocol.PeerInfo{Actor: c.actor, Nickname: c.nickname}
	for _, m := range r.members {
		if m != c {
			m.SendJSON(protocol.Envelope{T: protocol.MsgPeerJoined, Data: protocol.PeerMsg{Peer: info}})
		}
	}
}

// Leave removes c from its room. notify sends the leaver a left message.
// Empty rooms are closed; a departing master hands over to the lowest actor.
func (rm *RoomManager) Leave(c *Client, notify bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r := c.room
	if r == nil {
		return
	}
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	actor := c.actor
	c.room, c.actor = nil, 0
	if notify {
		c.SendJSON(protocol.Envelope{T: protocol.MsgLeft})
	}
	rm.events.Track(store.EvtPeerLeft, r.ID, actor, "")
	log.WithFields(log.Fields{"room": r.Name, "actor": actor}).Info("peer left")

	if len(r.members) == 0 {
		delete(rm.rooms, r.Name)
		rm.events.Track(store.EvtRoomClosed, r.ID, 0, "")
		log.WithField("room", r.Name).Info("room closed")
		return
	}
	if r.master == actor {
		sort.Slice(r.members, func(i, j int) bool { return r.members[i].actor < r.members[j].actor })
		r.master = r.members[0].actor
		for _, m := range r.members {
			m.SendJSON(protocol.Envelope{T: protocol.MsgMaster, Data: protocol.MasterMsg{Actor: r.master}})
		}
	}
	for _, m := range r.members {
		m.SendJSON(protocol.Envelope{T: protocol.MsgPeerLeft, Data: protocol.PeerMsg{Peer: protocol.PeerInfo{Actor: actor}}})
	}
}

// Route delivers a frame from c to the frame's target
func (rm *RoomManager) Route(c *Client, f protocol.Frame) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r := c.room
	if r == nil {
		return ErrRoomNotFound
	}
	f.From = c.actor
	out, err := protocol.MarshalFrame(f)
	if err != nil {
		return err
	}
	switch f.Target {
	case protocol.TargetOthers:
		for _, m := range r.members {
			if m != c {
				m.SendBinary(out)
			}
		}
	case protocol.TargetMaster:
		if m := r.member(r.master); m != nil {
			m.SendBinary(out)
		}
	case protocol.TargetPeer:
		m := r.member(f.To)
		if m == nil {
			return ErrRoomNotFound
		}
		m.SendBinary(out)
	default:
		return ErrInvalidRequest
	}
	return nil
}

// List returns the visible rooms
func (rm *RoomManager) List() []protocol.RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	list := make([]protocol.RoomInfo, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		if !r.Visible {
			continue
		}
		list = append(list, protocol.RoomInfo{
			ID:      r.ID,
			Name:    r.Name,
			Players: len(r.members),
			Max:     protocol.MaxPlayers,
			Locked:  r.locked(),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Exists reports whether a room with this name is open
func (rm *RoomManager) Exists(name string) bool {
	_, ok := rm.Info(name)
	return ok
}

// Info describes one open room, hidden ones included
func (rm *RoomManager) Info(name string) (protocol.RoomInfo, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.rooms[cleanRoomName(name)]
	if !ok {
		return protocol.RoomInfo{}, false
	}
	return protocol.RoomInfo{
		ID:      r.ID,
		Name:    r.Name,
		Players: len(r.members),
		Max:     protocol.MaxPlayers,
		Locked:  r.locked(),
	}, true
}

// Count returns the number of open rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
