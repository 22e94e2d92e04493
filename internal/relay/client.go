package relay

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"tankarena/internal/protocol"
	"tankarena/internal/store"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 60
)

// Client is one peer's websocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	nickname   string
	msgCount   int
	msgResetAt time.Time

	// guarded by the RoomManager lock
	room  *Room
	actor int32
}

// NewClient creates a Client for an authenticated connection
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, nickname string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		nickname:   nickname,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("addr", c.remoteAddr).Warn("ws error")
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.WithField("addr", c.remoteAddr).Warn("rate limit exceeded, disconnecting")
			break
		}

		if msgType == websocket.BinaryMessage {
			c.handleFrame(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF marks a binary frame queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw queues a text message. Slow clients drop messages.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// SendBinary queues a binary message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) handleFrame(raw []byte) {
	f, err := protocol.UnmarshalFrame(raw)
	if err != nil {
		log.WithError(err).WithField("addr", c.remoteAddr).Debug("bad frame")
		return
	}
	if err := c.hub.rooms.Route(c, f); err != nil {
		log.WithError(err).WithField("addr", c.remoteAddr).Debug("frame not routed")
	}
}

// handleMessage routes control messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env protocol.InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.WithError(err).Debug("unmarshal error")
		return
	}

	switch env.T {
	case protocol.MsgJoinRandom:
		_, err := c.hub.rooms.JoinRandom(c)
		c.reply(env.T, err)
	case protocol.MsgCreate:
		msg, err := decodeOptional[protocol.CreateMsg](env.D)
		if err == nil {
			_, err = c.hub.rooms.Create(c, msg)
		}
		c.reply(env.T, err)
	case protocol.MsgJoin:
		msg, err := protocol.Decode[protocol.JoinMsg](env.D)
		if err == nil {
			_, err = c.hub.rooms.Join(c, msg)
		}
		c.reply(env.T, err)
	case protocol.MsgJoinOrCreate:
		msg, err := protocol.Decode[protocol.JoinOrCreateMsg](env.D)
		if err == nil {
			_, err = c.hub.rooms.JoinOrCreate(c, msg)
		}
		c.reply(env.T, err)
	case protocol.MsgLeave:
		c.hub.rooms.Leave(c, true)
	default:
		c.reply(env.T, ErrInvalidRequest)
	}
}

func decodeOptional[T any](d json.RawMessage) (T, error) {
	if len(d) == 0 {
		var zero T
		return zero, nil
	}
	return protocol.Decode[T](d)
}

// reply reports a failed operation; success was already announced by the
// room manager.
func (c *Client) reply(op string, err error) {
	if err == nil {
		return
	}
	code := failureCode(err)
	c.hub.analytics.Track(store.EvtJoinFailed, "", 0, op)
	log.WithFields(log.Fields{"op": op, "code": code, "addr": c.remoteAddr}).WithError(err).Debug("room op failed")
	c.SendJSON(protocol.Envelope{T: protocol.MsgFailed, Data: protocol.FailedMsg{
		Op:   op,
		Code: code,
		Msg:  err.Error(),
	}})
}
