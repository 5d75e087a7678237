package transport

import "sync"

// MemoryConn is an in-memory Conn for binding a hub with an in-process
// peer, mainly in tests. Sent messages are buffered on a channel read by
// the peer via Receive.
type MemoryConn struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemory(buffer int) *MemoryConn {
	return &MemoryConn{
		msgs:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (c *MemoryConn) Send(msg []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	case c.msgs <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive exposes the peer side of the connection.
func (c *MemoryConn) Receive() <-chan []byte {
	return c.msgs
}

func (c *MemoryConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
