package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

// TCPOptions tunes the poll-driven TCP transport. Zero fields take defaults.
type TCPOptions struct {
	// DialTimeout bounds the connect attempt made by the first Poll.
	DialTimeout time.Duration
	// ReadWindow is how long each Poll waits for response data.
	ReadWindow time.Duration
	// WriteTimeout bounds Write.
	WriteTimeout time.Duration
	// BufferSize is the receive buffer per Poll.
	BufferSize int
}

const (
	defaultDialTimeout  = time.Second
	defaultReadWindow   = 10 * time.Millisecond
	defaultWriteTimeout = 5 * time.Second
	defaultBufferSize   = 4096
)

// TCPFactory makes Conns backed by net.
type TCPFactory struct {
	opts TCPOptions
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func NewTCPFactory(opts TCPOptions) *TCPFactory {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadWindow <= 0 {
		opts.ReadWindow = defaultReadWindow
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	return &TCPFactory{opts: opts, dial: net.DialTimeout}
}

func (f *TCPFactory) NewConn() (Conn, error) {
	return &tcpConn{
		opts: f.opts,
		dial: f.dial,
		buf:  make([]byte, f.opts.BufferSize),
	}, nil
}

type tcpConn struct {
	opts TCPOptions
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)

	addr    string
	conn    net.Conn
	dialing bool
	closed  bool
	eof     bool
	buf     []byte

	onConnected ConnectedFunc
	onRecv      RecvFunc
	onErr       ErrFunc
}

func (c *tcpConn) Connect(addr string, fn ConnectedFunc) error {
	if c.closed {
		return ErrClosed
	}
	if c.dialing || c.conn != nil {
		return ErrInProgress
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("connect %q: %w", addr, err)
	}
	c.addr = addr
	c.onConnected = fn
	c.dialing = true
	return nil
}

func (c *tcpConn) OnRecv(fn RecvFunc) { c.onRecv = fn }
func (c *tcpConn) OnError(fn ErrFunc) { c.onErr = fn }

func (c *tcpConn) Write(p []byte) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	_, err := c.conn.Write(p)
	return err
}

func (c *tcpConn) Poll() {
	if c.closed {
		return
	}

	if c.dialing {
		c.dialing = false
		conn, err := c.dial("tcp", c.addr, c.opts.DialTimeout)
		if err == nil {
			c.conn = conn
		}
		if fn := c.onConnected; fn != nil {
			fn(err)
		}
	}

	// A callback may have closed us; unregistered receivers leave data queued.
	if c.closed || c.conn == nil || c.eof || c.onRecv == nil {
		return
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadWindow))
	n, err := c.conn.Read(c.buf)
	if n > 0 {
		if fn := c.onRecv; fn != nil {
			fn(&Chunk{Data: c.buf[:n], TotalLen: n})
		}
	}
	if c.closed || err == nil {
		return
	}

	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		c.eof = true
		if fn := c.onRecv; fn != nil {
			fn(nil)
		}
	case errors.As(err, &ne) && ne.Timeout():
	default:
		if errors.Is(err, syscall.ECONNRESET) {
			err = fmt.Errorf("%w: %w", ErrPeerReset, err)
		}
		if fn := c.onErr; fn != nil {
			fn(err)
		}
	}
}

func (c *tcpConn) Detach() {
	c.onConnected = nil
	c.onRecv = nil
	c.onErr = nil
}

func (c *tcpConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.dialing = false
	c.Detach()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *tcpConn) Abort() {
	if c.closed {
		return
	}
	c.closed = true
	c.dialing = false
	c.Detach()
	if c.conn == nil {
		return
	}
	if tc, ok := c.conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = c.conn.Close()
	c.conn = nil
}
