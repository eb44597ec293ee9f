package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket watching a single diagnosis session.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	SessionID string

	// Buffered channel of outbound frames.
	Send chan []byte
}

// isFinal reports whether frame is the last one a session produces.
func isFinal(frame []byte) bool {
	var head struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(frame, &head) == nil && head.Type == frameFinished
}

// readPump only services control frames; the stream is one-way.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected websocket close", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
			}
			return
		}
	}
}

// writePump forwards hub frames and pings. It closes the connection after the finished frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Hub.logger.Debug("Hub", "Write failed", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
				return
			}
			if isFinal(frame) {
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
