// Package delivery owns the lifecycle of one outbound reading delivery:
// connect, send, await a response or peer close, and tear the connection
// down exactly once whichever way the attempt ends.
package delivery

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"cloudpico-node/internal/transport"
)

// ResponseCapacity bounds how much of the collector's reply is kept.
const ResponseCapacity = 1024

const (
	DefaultPollInterval = time.Second
	DefaultTimeout      = 20 * time.Second
)

var (
	ErrTimeout  = errors.New("delivery: no response before deadline")
	errReleased = errors.New("delivery: attempt released before completion")
)

// Clock abstracts time for the deadline loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        Clock
	Logger       *slog.Logger
}

// Result describes how an attempt ended.
type Result struct {
	State     State
	Err       error
	Response  []byte
	Truncated bool
	Elapsed   time.Duration
}

// Stats are cumulative attempt counters. Releases equals Attempts whenever no
// Deliver call is in flight.
type Stats struct {
	Attempts  uint64
	Releases  uint64
	Succeeded uint64
	Failed    uint64
	TimedOut  uint64
}

// Machine runs delivery attempts against one target. Deliver is not safe
// for concurrent use; Stats is.
type Machine struct {
	factory transport.Factory
	target  Target
	poll    time.Duration
	timeout time.Duration
	clock   Clock
	logger  *slog.Logger

	attempts  atomic.Uint64
	releases  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	timedOut  atomic.Uint64
}

func New(factory transport.Factory, target Target, opts Options) *Machine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Machine{
		factory: factory,
		target:  target,
		poll:    opts.PollInterval,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		logger:  opts.Logger,
	}
}

func (m *Machine) Target() Target { return m.target }

func (m *Machine) Stats() Stats {
	return Stats{
		Attempts:  m.attempts.Load(),
		Releases:  m.releases.Load(),
		Succeeded: m.succeeded.Load(),
		Failed:    m.failed.Load(),
		TimedOut:  m.timedOut.Load(),
	}
}

// Deliver runs one attempt to completion. It returns within the configured
// timeout plus one poll interval.
func (m *Machine) Deliver(req Request) Result {
	start := m.clock.Now()
	m.attempts.Add(1)

	remote := m.target.Addr()
	a := &attempt{
		m:      m,
		req:    req,
		remote: remote,
		state:  Idle,
		logger: m.logger.With("remote", remote),
	}
	defer a.release()

	a.open()
	deadline := start.Add(m.timeout)
	for !a.state.Terminal() {
		a.conn.Poll()
		if a.state.Terminal() {
			break
		}
		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			a.finish(Aborted, ErrTimeout)
			break
		}
		m.clock.Sleep(min(m.poll, remaining))
	}

	res := Result{
		State:     a.state,
		Err:       a.err,
		Response:  append([]byte(nil), a.response[:a.respLen]...),
		Truncated: a.truncated,
		Elapsed:   m.clock.Now().Sub(start),
	}
	switch res.State {
	case ClosedSuccess:
		m.succeeded.Add(1)
	case Aborted:
		m.timedOut.Add(1)
	default:
		m.failed.Add(1)
	}
	return res
}

// attempt is the per-delivery connection state. conn is non-nil exactly
// while the attempt is in a non-terminal state past Idle.
type attempt struct {
	m      *Machine
	logger *slog.Logger

	conn   transport.Conn
	remote string
	state  State
	req    Request

	response  [ResponseCapacity]byte
	respLen   int
	truncated bool
	err       error
	released  bool
}

func (a *attempt) open() {
	conn, err := a.m.factory.NewConn()
	if err != nil {
		a.finish(ClosedError, fmt.Errorf("create connection: %w", err))
		return
	}
	a.conn = conn
	conn.OnError(a.onError)

	a.logger.Info("connecting")
	if err := conn.Connect(a.remote, a.onConnected); err != nil {
		a.finish(ClosedError, fmt.Errorf("connect %s: %w", a.remote, err))
		return
	}
	a.transition(Connecting)
}

func (a *attempt) onConnected(err error) {
	if a.state != Connecting {
		return
	}
	if err != nil {
		a.finish(ClosedError, fmt.Errorf("connect %s: %w", a.remote, err))
		return
	}
	a.transition(Sending)

	msg := a.req.Message(a.m.target)
	a.logger.Debug("sending request", "body", a.req.Body(), "bytes", len(msg))
	if err := a.conn.Write(msg); err != nil {
		a.finish(ClosedError, fmt.Errorf("write request: %w", err))
		return
	}
	a.conn.OnRecv(a.onRecv)
	a.transition(AwaitingResponse)
}

func (a *attempt) onRecv(c *transport.Chunk) {
	if a.state != AwaitingResponse {
		return
	}
	if c == nil {
		a.logger.Info("connection closed by collector")
		a.finish(ClosedSuccess, nil)
		return
	}
	a.respLen = copy(a.response[:], c.Data)
	a.truncated = c.TotalLen > len(a.response) || len(c.Data) > len(a.response)
	a.logger.Debug("response received",
		"bytes", c.TotalLen,
		"truncated", a.truncated,
		"response", string(a.response[:a.respLen]),
	)
	a.finish(ClosedSuccess, nil)
}

func (a *attempt) onError(err error) {
	if a.state.Terminal() {
		return
	}
	a.finish(ClosedError, fmt.Errorf("transport: %w", err))
}

func (a *attempt) transition(to State) {
	a.logger.Debug("delivery state", "from", a.state.String(), "to", to.String())
	a.state = to
}

// finish moves the attempt into a terminal state and tears the connection
// down. Only the first call has any effect.
func (a *attempt) finish(to State, err error) {
	if a.state.Terminal() {
		return
	}
	a.transition(to)
	a.err = err

	switch to {
	case ClosedSuccess:
		a.logger.Info("delivery complete")
	case Aborted:
		a.logger.Error("delivery timed out", "timeout", a.m.timeout)
	default:
		a.logger.Error("delivery failed", "err", err)
	}

	conn := a.conn
	a.conn = nil
	if conn == nil {
		return
	}
	conn.Detach()
	if to == Aborted {
		conn.Abort()
		return
	}
	if cerr := conn.Close(); cerr != nil {
		a.logger.Debug("close failed", "err", cerr)
	}
}

// release runs on every Deliver exit path, panics included.
func (a *attempt) release() {
	if a.released {
		return
	}
	a.released = true
	a.finish(ClosedError, errReleased)
	a.m.releases.Add(1)
}
