// Package transport is the node's connection-oriented socket boundary.
//
// A Conn is driven entirely by its owner: Connect only records intent, and
// every callback (connected, receive, error) fires from inside Poll on the
// caller's goroutine. Nothing here runs in the background.
package transport

import "errors"

var (
	ErrClosed       = errors.New("transport: connection closed")
	ErrNotConnected = errors.New("transport: not connected")
	ErrInProgress   = errors.New("transport: connect already in progress")
)

// ErrPeerReset wraps a reset (RST) from the remote end.
var ErrPeerReset = errors.New("transport: connection reset by peer")

// Chunk is one piece of response data. TotalLen is the amount of data the
// stack had available; it can exceed len(Data).
type Chunk struct {
	Data     []byte
	TotalLen int
}

// ConnectedFunc reports the outcome of Connect. err is nil on success.
type ConnectedFunc func(err error)

// RecvFunc receives response data. A nil chunk means the peer closed.
type RecvFunc func(c *Chunk)

// ErrFunc reports a fatal transport error on an established connection.
type ErrFunc func(err error)

// Conn is one outbound connection.
type Conn interface {
	// Connect starts connecting to addr (host:port). It does not block; fn
	// fires from a later Poll.
	Connect(addr string, fn ConnectedFunc) error
	OnRecv(fn RecvFunc)
	OnError(fn ErrFunc)
	// Write queues p in full. p is not retained.
	Write(p []byte) error
	// Poll drives pending work and dispatches callbacks.
	Poll()
	// Detach drops every registered callback.
	Detach()
	// Close shuts the connection down gracefully. It is idempotent.
	Close() error
	// Abort resets the connection. It is idempotent.
	Abort()
}

// Factory creates connections.
type Factory interface {
	NewConn() (Conn, error)
}
