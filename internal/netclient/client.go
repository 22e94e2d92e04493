// Package netclient connects a peer to the relay. It implements the core's
// Network and RoomService and pushes everything it receives into the
// core's inbox.
package netclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"tankarena/internal/arena"
	"tankarena/internal/protocol"
)

const (
	writeWait   = 10 * time.Second
	sendBufSize = 256
	dialTimeout = 10 * time.Second
)

var (
	ErrAlreadyConnected = errors.New("netclient: already connected")
	ErrSendBufferFull   = errors.New("netclient: send buffer full")
)

// Sink receives inbound traffic. *arena.Game satisfies it.
type Sink interface {
	Enqueue(in arena.Inbound)
}

type connState uint8

const (
	stateIdle connState = iota
	stateConnecting
	stateOnline
)

type outbound struct {
	binary bool
	data   []byte
}

// Client is one peer's connection to the relay
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *log.Entry

	mu      sync.RWMutex
	sink    Sink
	conn    *websocket.Conn
	send    chan outbound
	state   connState
	closing bool
	room    string
	actor   int32
	master  int32
	peers   map[int32]string
}

// New creates a client for the relay at baseURL (http or https)
func New(baseURL string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: dialTimeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: dialTimeout},
		log:     logger.WithField("component", "netclient"),
		peers:   make(map[int32]string),
	}
}

// Attach sets where inbound traffic goes. Call before Connect.
func (c *Client) Attach(sink Sink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

func (c *Client) emit(in arena.Inbound) {
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	if sink != nil {
		sink.Enqueue(in)
	}
}

func (c *Client) emitRoom(ev arena.RoomEvent) {
	c.emit(arena.Inbound{Room: &ev})
}

// Connected reports whether the peer is in a room
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room != ""
}

// LocalPeer returns the actor number in the current room
func (c *Client) LocalPeer() arena.PeerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return arena.PeerID(c.actor)
}

// IsMaster reports whether the relay named this peer master
func (c *Client) IsMaster() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actor != 0 && c.actor == c.master
}

// PlayerCount returns the room size including this peer
func (c *Client) PlayerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peers)
}

// Send delivers a replicated payload through the relay
func (c *Client) Send(target arena.Target, to arena.PeerID, payload []byte) error {
	f := protocol.Frame{To: int32(to), Payload: payload}
	switch target {
	case arena.TargetOthers:
		f.Target = protocol.TargetOthers
	case arena.TargetMaster:
		f.Target = protocol.TargetMaster
	case arena.TargetPeer:
		f.Target = protocol.TargetPeer
	default:
		return fmt.Errorf("netclient: cannot send to %s", target)
	}
	if !c.Connected() {
		return arena.ErrNotConnected
	}
	b, err := protocol.MarshalFrame(f)
	if err != nil {
		return err
	}
	return c.queue(outbound{binary: true, data: b})
}

// Connect fetches a token and opens the websocket in the background. The
// outcome arrives as RoomConnected or RoomDisconnected.
func (c *Client) Connect(nickname string) error {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = stateConnecting
	c.closing = false
	c.mu.Unlock()

	go c.connect(nickname)
	return nil
}

func (c *Client) connect(nickname string) {
	conn, err := c.dial(nickname)
	if err != nil {
		c.log.WithError(err).Warn("connect failed")
		c.mu.Lock()
		c.state = stateIdle
		c.mu.Unlock()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomDisconnected, Message: err.Error()})
		return
	}

	c.mu.Lock()
	if c.closing {
		c.state = stateIdle
		c.mu.Unlock()
		conn.Close()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomDisconnected})
		return
	}
	send := make(chan outbound, sendBufSize)
	c.conn, c.send, c.state = conn, send, stateOnline
	c.mu.Unlock()

	go c.writePump(conn, send)
	go c.readPump(conn)
}

func (c *Client) dial(nickname string) (*websocket.Conn, error) {
	token, err := c.fetchToken(nickname)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()
	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return conn, nil
}

func (c *Client) fetchToken(nickname string) (string, error) {
	body, err := json.Marshal(map[string]string{"nick": nickname})
	if err != nil {
		return "", err
	}
	resp, err := c.http.Post(c.baseURL+"/api/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: %s", resp.Status)
	}
	var tr struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return tr.Token, nil
}

func (c *Client) readPump(conn *websocket.Conn) {
	var reason string
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = "Connection lost"
			}
			break
		}
		if msgType == websocket.BinaryMessage {
			c.handleFrame(raw)
		} else {
			c.handleControl(raw)
		}
	}

	c.mu.Lock()
	if c.closing {
		reason = ""
	} else if reason == "" {
		reason = "Disconnected"
	}
	if c.send != nil {
		close(c.send)
	}
	c.conn, c.send = nil, nil
	c.state = stateIdle
	c.resetRoomLocked()
	c.mu.Unlock()

	conn.Close()
	c.log.WithField("reason", reason).Info("disconnected")
	c.emitRoom(arena.RoomEvent{Kind: arena.RoomDisconnected, Message: reason})
}

func (c *Client) writePump(conn *websocket.Conn, send <-chan outbound) {
	defer conn.Close()
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		kind := websocket.TextMessage
		if msg.binary {
			kind = websocket.BinaryMessage
		}
		if err := conn.WriteMessage(kind, msg.data); err != nil {
			c.log.WithError(err).Debug("write failed")
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) queue(msg outbound) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.send == nil {
		return arena.ErrNotConnected
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) control(typ string, data interface{}) error {
	b, err := json.Marshal(protocol.Envelope{T: typ, Data: data})
	if err != nil {
		return err
	}
	return c.queue(outbound{data: b})
}

func (c *Client) handleFrame(raw []byte) {
	f, err := protocol.UnmarshalFrame(raw)
	if err != nil {
		c.log.WithError(err).Warn("bad frame")
		return
	}
	c.emit(arena.Inbound{From: arena.PeerID(f.From), Payload: f.Payload})
}

// handleControl updates the room state before the matching event is
// queued, so the core sees the new master when it handles the event.
func (c *Client) handleControl(raw []byte) {
	var env protocol.InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Warn("bad control message")
		return
	}
	switch env.T {
	case protocol.MsgHello:
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomConnected})

	case protocol.MsgJoined:
		msg, err := protocol.Decode[protocol.JoinedMsg](env.D)
		if err != nil {
			c.log.WithError(err).Warn("bad joined message")
			return
		}
		ev := arena.RoomEvent{Kind: arena.RoomJoined, Room: msg.Room, Local: arena.PeerID(msg.Actor)}
		c.mu.Lock()
		c.room, c.actor, c.master = msg.Room, msg.Actor, msg.Master
		clear(c.peers)
		for _, p := range msg.Peers {
			c.peers[p.Actor] = p.Nickname
			ev.Peers = append(ev.Peers, peerInfo(p))
		}
		c.mu.Unlock()
		c.emitRoom(ev)

	case protocol.MsgFailed:
		msg, err := protocol.Decode[protocol.FailedMsg](env.D)
		if err != nil {
			c.log.WithError(err).Warn("bad failed message")
			return
		}
		c.emitRoom(arena.RoomEvent{Kind: failureKind(msg.Op), Code: msg.Code, Message: msg.Msg})

	case protocol.MsgPeerJoined:
		msg, err := protocol.Decode[protocol.PeerMsg](env.D)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.peers[msg.Peer.Actor] = msg.Peer.Nickname
		c.mu.Unlock()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomPeerJoined, Peer: peerInfo(msg.Peer)})

	case protocol.MsgPeerLeft:
		msg, err := protocol.Decode[protocol.PeerMsg](env.D)
		if err != nil {
			return
		}
		c.mu.Lock()
		msg.Peer.Nickname = c.peers[msg.Peer.Actor]
		delete(c.peers, msg.Peer.Actor)
		c.mu.Unlock()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomPeerLeft, Peer: peerInfo(msg.Peer)})

	case protocol.MsgMaster:
		msg, err := protocol.Decode[protocol.MasterMsg](env.D)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.master = msg.Actor
		c.mu.Unlock()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomMasterChanged, Peer: arena.PeerInfo{ID: arena.PeerID(msg.Actor)}})

	case protocol.MsgLeft:
		c.mu.Lock()
		room := c.room
		c.resetRoomLocked()
		c.mu.Unlock()
		c.emitRoom(arena.RoomEvent{Kind: arena.RoomLeft, Room: room})

	default:
		c.log.WithField("type", env.T).Debug("unknown control message")
	}
}

func (c *Client) resetRoomLocked() {
	c.room, c.actor, c.master = "", 0, 0
	clear(c.peers)
}

func peerInfo(p protocol.PeerInfo) arena.PeerInfo {
	return arena.PeerInfo{ID: arena.PeerID(p.Actor), Nickname: p.Nickname}
}

func failureKind(op string) arena.RoomEventKind {
	switch op {
	case protocol.MsgJoinRandom:
		return arena.RoomJoinRandomFailed
	case protocol.MsgJoin:
		return arena.RoomJoinFailed
	}
	return arena.RoomCreateFailed
}

// JoinRandom asks for any open room
func (c *Client) JoinRandom() error {
	return c.control(protocol.MsgJoinRandom, nil)
}

// CreateRoom asks for a new room; an empty name lets the relay pick one
func (c *Client) CreateRoom(name string, opts arena.RoomOptions) error {
	return c.control(protocol.MsgCreate, protocol.CreateMsg{
		Name:       name,
		Visible:    opts.Visible,
		Passphrase: opts.Passphrase,
	})
}

// JoinRoom joins a named room, optionally locked with a passphrase
func (c *Client) JoinRoom(name, passphrase string) error {
	return c.control(protocol.MsgJoin, protocol.JoinMsg{Name: name, Passphrase: passphrase})
}

// JoinOrCreate joins the named room, creating it when missing
func (c *Client) JoinOrCreate(name string, opts arena.RoomOptions) error {
	return c.control(protocol.MsgJoinOrCreate, protocol.JoinOrCreateMsg{Name: name, Visible: opts.Visible})
}

// LeaveRoom asks to leave the current room
func (c *Client) LeaveRoom() error {
	return c.control(protocol.MsgLeave, nil)
}

// Disconnect closes the connection. RoomDisconnected follows with an empty
// reason.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateIdle {
		return arena.ErrNotConnected
	}
	c.closing = true
	if c.send != nil {
		// the write pump sends a close frame and the read pump ends
		close(c.send)
		c.send = nil
	}
	if c.conn != nil {
		c.conn.SetReadDeadline(time.Now().Add(writeWait))
	}
	return nil
}
