package channel

import (
	"encoding/json"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Envelope is the wire frame exchanged over the websocket: a message type
// plus a raw payload decoded by the handler for that type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one connected websocket peer. Outbound messages go through a
// buffered channel so the hub never blocks on a slow connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
}

// Send queues an envelope for delivery. Messages to a full buffer are
// dropped; the periodic SYNC snapshot repairs any resulting gaps.
func (c *Client) Send(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logging.Error("failed to marshal outbound payload", err, logging.Fields{"type": msgType})
		return
	}
	b, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		logging.Warn("dropping message to slow client", logging.Fields{"player_id": c.playerID, "type": msgType})
	}
}

// readPump reads envelopes from the socket and dispatches them to the hub
// until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("websocket read error", logging.Fields{"player_id": c.playerID, "error": err.Error()})
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.Warn("malformed envelope", logging.Fields{"player_id": c.playerID})
			continue
		}
		c.hub.dispatch(c, env)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
