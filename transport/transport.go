// Package transport abstracts the persistent duplex connection between the
// hub and a validator. The hub holds non-owning Conn handles; the lifetime
// of the underlying connection belongs to the server's read loop.
package transport

import (
	"errors"
	"time"
)

var (
	ErrClosed     = errors.New("connection is closed")
	ErrBufferFull = errors.New("connection buffer is full")
)

const defaultWriteTimeout = 10 * time.Second

// Conn is a handle for sending messages to a single connected validator.
// Sends are fire-and-forget: a nil error means the message was handed to
// the transport, not that the validator received it.
type Conn interface {
	Send(msg []byte) error
	Close() error
}
