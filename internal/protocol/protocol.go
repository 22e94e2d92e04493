// Package protocol is the wire format between the relay and peers: JSON
// control envelopes for room operations and msgpack frames for replicated
// traffic.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Peer -> relay control types
const (
	MsgJoinRandom   = "join_random"
	MsgCreate       = "create"
	MsgJoin         = "join"
	MsgJoinOrCreate = "join_or_create"
	MsgLeave        = "leave"
)

// Relay -> peer control types
const (
	MsgHello      = "hello"
	MsgJoined     = "joined"
	MsgFailed     = "failed"
	MsgPeerJoined = "peer_joined"
	MsgPeerLeft   = "peer_left"
	MsgMaster     = "master"
	MsgLeft       = "left"
)

// Failure codes reported in FailedMsg
const (
	CodeGameFull       = 32765
	CodeGameNotFound   = 32758
	CodeNoRandomMatch  = 32760
	CodeGameExists     = 32766
	CodeBadPassphrase  = 32767
	CodeInvalidRequest = -2
)

// Data frame targets
const (
	TargetOthers uint8 = 1
	TargetMaster uint8 = 2
	TargetPeer   uint8 = 3
)

// MaxPlayers is the room size
const MaxPlayers = 2

// Envelope wraps all outgoing control messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg asks for a new room. An empty name gets a generated one.
type CreateMsg struct {
	Name       string `json:"name,omitempty"`
	Visible    bool   `json:"visible"`
	Passphrase string `json:"pass,omitempty"`
}

// JoinMsg joins an existing room by name
type JoinMsg struct {
	Name       string `json:"name"`
	Passphrase string `json:"pass,omitempty"`
}

// JoinOrCreateMsg joins the named room, creating it if missing
type JoinOrCreateMsg struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// PeerInfo describes a room member
type PeerInfo struct {
	Actor    int32  `json:"actor"`
	Nickname string `json:"nick"`
}

// HelloMsg is sent once after the websocket is accepted
type HelloMsg struct {
	Nickname string `json:"nick"`
}

// JoinedMsg confirms a join. Actor is the receiver's number in the room.
type JoinedMsg struct {
	Room   string     `json:"room"`
	Actor  int32      `json:"actor"`
	Master int32      `json:"master"`
	Peers  []PeerInfo `json:"peers"`
}

// FailedMsg reports a rejected operation
type FailedMsg struct {
	Op   string `json:"op"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// PeerMsg announces a member joining or leaving
type PeerMsg struct {
	Peer PeerInfo `json:"peer"`
}

// MasterMsg announces the current master actor
type MasterMsg struct {
	Actor int32 `json:"actor"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Max     int    `json:"max"`
	Locked  bool   `json:"locked"`
}

// Frame carries one replicated message. From is stamped by the relay.
type Frame struct {
	Target  uint8  `msgpack:"t"`
	To      int32  `msgpack:"to,omitempty"`
	From    int32  `msgpack:"f,omitempty"`
	Payload []byte `msgpack:"p"`
}

// Decode unmarshals an envelope payload into T
func Decode[T any](d json.RawMessage) (T, error) {
	var v T
	if len(d) == 0 {
		return v, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(d, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

// MarshalFrame encodes a frame with msgpack
func MarshalFrame(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

// UnmarshalFrame decodes a frame produced by MarshalFrame
func UnmarshalFrame(b []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
