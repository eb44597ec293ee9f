package websocket

import (
	"medrag-be/pkg/diagnosis"

	"github.com/gofiber/websocket/v2"
)

const clientBuffer = 64

// ServeWs streams progress of sessionID to c. The client is registered before the current
// status is read, so a session finishing in between still yields a finished frame.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, load func() (diagnosis.Status, error)) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, clientBuffer)}
	if !hub.Register(client) {
		c.Close()
		return
	}

	if current, err := load(); err == nil {
		if frame, err := SnapshotFrame(current); err == nil {
			select {
			case client.Send <- frame:
			default:
			}
		}
	}

	go client.writePump()
	client.readPump()
}
