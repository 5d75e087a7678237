package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a websocket connection into a Conn.
// gorilla/websocket permits a single concurrent writer, so writes are
// serialized by a mutex.
type wsConn struct {
	writeMtx sync.Mutex
	ws       *websocket.Conn
}

func NewWebsocket(ws *websocket.Conn) Conn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(msg []byte) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
