// Package aht10 samples relative humidity from an Aosong AHT10.
//
// Only the humidity half of the measurement is decoded; temperature comes
// from the BMP280.
package aht10

import (
	"fmt"
	"time"

	"cloudpico-node/internal/bus"
)

// Address is the fixed I2C address.
const Address = 0x38

const (
	cmdCalibrate = 0xE1
	cmdTrigger   = 0xAC
	cmdSoftReset = 0xBA

	resetDelay     = 20 * time.Millisecond
	calibrateDelay = 400 * time.Millisecond

	// DefaultSettle is the conversion time between trigger and read.
	DefaultSettle = 80 * time.Millisecond

	frameLen = 6
)

// Device is an initialised AHT10.
type Device struct {
	session *bus.Session
	settle  time.Duration
}

// New soft-resets and calibrates the sensor. The commands are sent blind;
// an AHT10 that is slow to ACK is still usable once the delays pass.
func New(s *bus.Session, settle time.Duration) (*Device, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if err := s.Write([]byte{cmdSoftReset}); err != nil {
		return nil, fmt.Errorf("aht10 reset: %w", err)
	}
	s.Settle(resetDelay)

	if err := s.Write([]byte{cmdCalibrate, 0x08, 0x00}); err != nil {
		return nil, fmt.Errorf("aht10 calibrate: %w", err)
	}
	s.Settle(calibrateDelay)

	return &Device{session: s, settle: settle}, nil
}

// ReadHumidity triggers a measurement, waits for the settle delay and
// decodes the result. On a bus error it returns 0 and the error; callers
// treat that as a skipped sample.
func (d *Device) ReadHumidity() (float64, error) {
	if err := d.session.Write([]byte{cmdTrigger, 0x33, 0x00}); err != nil {
		return 0, err
	}
	d.session.Settle(d.settle)

	buf, err := d.session.Read(frameLen)
	if err != nil {
		return 0, err
	}
	var frame [frameLen]byte
	copy(frame[:], buf)
	return DecodeHumidity(frame), nil
}

// RawHumidity extracts the 20-bit humidity from a measurement frame. Byte 0
// is status and is ignored.
func RawHumidity(frame [frameLen]byte) uint32 {
	return uint32(frame[1])<<12 | uint32(frame[2])<<4 | uint32(frame[3])>>4
}

// DecodeHumidity converts a measurement frame to %RH.
func DecodeHumidity(frame [frameLen]byte) float64 {
	return float64(RawHumidity(frame)) * 100.0 / (1 << 20)
}
