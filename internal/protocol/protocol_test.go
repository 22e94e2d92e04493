package protocol

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeDecode(t *testing.T) {
	raw, _ := json.Marshal(Envelope{T: MsgJoin, Data: JoinMsg{Name: "duel", Passphrase: "x"}})

	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.T != MsgJoin {
		t.Fatalf("expected join, got %s", env.T)
	}
	msg, err := Decode[JoinMsg](env.D)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Name != "duel" || msg.Passphrase != "x" {
		t.Errorf("unexpected payload %+v", msg)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	if _, err := Decode[JoinMsg](nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	b, err := MarshalFrame(Frame{Target: TargetPeer, To: 2, Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	f, err := UnmarshalFrame(b)
	if err != nil {
		t.Fatal(err)
	}
	if f.Target != TargetPeer || f.To != 2 || f.From != 0 || len(f.Payload) != 3 {
		t.Errorf("unexpected frame %+v", f)
	}
}

func TestUnmarshalFrameGarbage(t *testing.T) {
	if _, err := UnmarshalFrame([]byte{0xc1}); err == nil {
		t.Error("expected error for garbage frame")
	}
}
