package arena

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// wireMessage is the encoded form: version, kind, then the kind's payload
type wireMessage struct {
	V uint8              `msgpack:"v"`
	K MsgKind            `msgpack:"k"`
	B msgpack.RawMessage `msgpack:"b"`
}

// Encode serializes a message with msgpack
func Encode(m Message) ([]byte, error) {
	payload, err := m.payload()
	if err != nil {
		return nil, err
	}
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind, err)
	}
	return msgpack.Marshal(wireMessage{V: SchemaVersion, K: m.Kind, B: body})
}

// Decode parses bytes produced by Encode
func Decode(b []byte) (Message, error) {
	var w wireMessage
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if w.V != SchemaVersion {
		return Message{}, fmt.Errorf("%w: %d", ErrBadVersion, w.V)
	}
	m := Message{Kind: w.K}
	var dst any
	switch w.K {
	case MsgSpawn:
		m.Spawn = &SpawnMsg{}
		dst = m.Spawn
	case MsgDespawn:
		m.Despawn = &DespawnMsg{}
		dst = m.Despawn
	case MsgTransform:
		m.Transform = &TransformMsg{}
		dst = m.Transform
	case MsgTakeDamage:
		m.Damage = &TakeDamageMsg{}
		dst = m.Damage
	case MsgDestroyObstacle:
		m.Obstacle = &DestroyObstacleMsg{}
		dst = m.Obstacle
	case MsgRemovePowerup:
		m.Powerup = &RemovePowerupMsg{}
		dst = m.Powerup
	case MsgSpawnAssignment:
		m.Assignment = &SpawnAssignmentMsg{}
		dst = m.Assignment
	case MsgWinNotice:
		m.Win = &WinNoticeMsg{}
		dst = m.Win
	case MsgReloadWorld:
		m.Reload = &ReloadWorldMsg{}
		dst = m.Reload
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownKind, w.K)
	}
	if err := msgpack.Unmarshal(w.B, dst); err != nil {
		return Message{}, fmt.Errorf("decode %s: %w", w.K, err)
	}
	return m, nil
}

func (m Message) payload() (any, error) {
	var p any
	switch m.Kind {
	case MsgSpawn:
		p = m.Spawn
	case MsgDespawn:
		p = m.Despawn
	case MsgTransform:
		p = m.Transform
	case MsgTakeDamage:
		p = m.Damage
	case MsgDestroyObstacle:
		p = m.Obstacle
	case MsgRemovePowerup:
		p = m.Powerup
	case MsgSpawnAssignment:
		p = m.Assignment
	case MsgWinNotice:
		p = m.Win
	case MsgReloadWorld:
		p = m.Reload
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, m.Kind)
	}
	if isNilPayload(p) {
		return nil, fmt.Errorf("encode %s: missing payload", m.Kind)
	}
	return p, nil
}

func isNilPayload(p any) bool {
	switch v := p.(type) {
	case *SpawnMsg:
		return v == nil
	case *DespawnMsg:
		return v == nil
	case *TransformMsg:
		return v == nil
	case *TakeDamageMsg:
		return v == nil
	case *DestroyObstacleMsg:
		return v == nil
	case *RemovePowerupMsg:
		return v == nil
	case *SpawnAssignmentMsg:
		return v == nil
	case *WinNoticeMsg:
		return v == nil
	case *ReloadWorldMsg:
		return v == nil
	}
	return p == nil
}
