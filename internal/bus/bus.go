// Package bus wraps the node's I2C buses in register-level sessions.
//
// A Session is bound to one device address and exposes the only primitives
// the sensor drivers use: a write, a read, a write-then-read of a register
// block, and the post-write settle delay.
package bus

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// ErrShortRead is returned when a read asks for zero bytes.
var ErrShortRead = errors.New("bus: short read")

// Session is a synchronous register-level view of one device on a bus.
type Session struct {
	bus   drivers.I2C
	addr  uint16
	sleep func(time.Duration)
}

// NewSession binds addr on bus. The settle delay uses time.Sleep.
func NewSession(bus drivers.I2C, addr uint16) *Session {
	return &Session{bus: bus, addr: addr, sleep: time.Sleep}
}

// WithSleep replaces the settle delay function (tests use a no-op).
func (s *Session) WithSleep(fn func(time.Duration)) *Session {
	if fn != nil {
		s.sleep = fn
	}
	return s
}

// Addr returns the 7-bit device address.
func (s *Session) Addr() uint16 { return s.addr }

// Write sends p to the device.
func (s *Session) Write(p []byte) error {
	if err := s.bus.Tx(s.addr, p, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X: %w", s.addr, err)
	}
	return nil
}

// Read reads n bytes from the device.
func (s *Session) Read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrShortRead
	}
	buf := make([]byte, n)
	if err := s.bus.Tx(s.addr, nil, buf); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X: %w", s.addr, err)
	}
	return buf, nil
}

// ReadRegister writes the start register and reads n bytes back in one
// repeated-start transaction.
func (s *Session) ReadRegister(reg byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrShortRead
	}
	buf := make([]byte, n)
	if err := s.bus.Tx(s.addr, []byte{reg}, buf); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X reg 0x%02X: %w", s.addr, reg, err)
	}
	return buf, nil
}

// Settle blocks for d.
func (s *Session) Settle(d time.Duration) {
	if d > 0 {
		s.sleep(d)
	}
}
