package bus

import (
	"encoding/binary"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Default device addresses emulated by Sim.
const (
	SimPressureAddr = 0x76
	SimHumidityAddr = 0x38

	// SimChipID is what the BMP280 returns from its id register (0xD0).
	SimChipID = 0x58
)

// Sim emulates a BMP280 and an AHT10 on one bus. BUS_BACKEND=sim runs the
// node against it; tests use it as a scripted device.
type Sim struct {
	mu sync.Mutex

	Calibration    [24]byte
	RawPressure    uint32 // 20-bit adc_P
	RawTemperature uint32 // 20-bit adc_T
	RawHumidity    uint32 // 20-bit

	// Err, when set, fails every transaction.
	Err error

	ctrlMeas byte
	txCount  int
}

// NewSim returns a Sim loaded with the BMP280 datasheet calibration vector
// (25.08 °C, 1006.53 hPa) and 50 %RH.
func NewSim() *Sim {
	s := &Sim{
		RawPressure:    415148,
		RawTemperature: 519888,
		RawHumidity:    0x80000,
	}
	fields := []uint16{
		27504, 26435, 0xFC18, // T1, T2, T3 (-1000)
		36477, 0xD643, 3024, 2855, 140, 0xFFF9, 15500, 0xC6F8, 6000, // P1..P9
	}
	for i, v := range fields {
		binary.LittleEndian.PutUint16(s.Calibration[2*i:], v)
	}
	return s
}

func (s *Sim) String() string { return "sim" }

// Close is a no-op.
func (s *Sim) Close() error { return nil }

// SetSpeed accepts any clock.
func (s *Sim) SetSpeed(physic.Frequency) error { return nil }

// TxCount returns the number of transactions seen.
func (s *Sim) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// CtrlMeas returns the last value written to the BMP280 ctrl_meas register.
func (s *Sim) CtrlMeas() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrlMeas
}

func (s *Sim) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}

var _ i2c.BusCloser = (*Sim)(nil)

func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	if s.Err != nil {
		return s.Err
	}

	switch addr {
	case SimPressureAddr:
		s.pressureTx(w, r)
	case SimHumidityAddr:
		s.humidityTx(w, r)
	default:
		return fmt.Errorf("sim: no device at 0x%02X", addr)
	}
	return nil
}

func (s *Sim) pressureTx(w, r []byte) {
	if len(w) == 0 {
		return
	}
	// Register writes come as reg/value pairs.
	if len(r) == 0 && len(w)%2 == 0 {
		for i := 0; i < len(w); i += 2 {
			if w[i] == 0xF4 {
				s.ctrlMeas = w[i+1]
			}
		}
		return
	}
	for i := range r {
		r[i] = 0
	}
	switch w[0] {
	case 0xD0:
		if len(r) > 0 {
			r[0] = SimChipID
		}
	case 0x88:
		copy(r, s.Calibration[:])
	case 0xF7:
		raw := [6]byte{
			byte(s.RawPressure >> 12), byte(s.RawPressure >> 4), byte(s.RawPressure<<4) & 0xF0,
			byte(s.RawTemperature >> 12), byte(s.RawTemperature >> 4), byte(s.RawTemperature<<4) & 0xF0,
		}
		copy(r, raw[:])
	case 0xFA:
		raw := [3]byte{byte(s.RawTemperature >> 12), byte(s.RawTemperature >> 4), byte(s.RawTemperature<<4) & 0xF0}
		copy(r, raw[:])
	}
}

func (s *Sim) humidityTx(w, r []byte) {
	if len(r) == 0 {
		return
	}
	for i := range r {
		r[i] = 0
	}
	r[0] = 0x08
	if len(r) >= 4 {
		h := s.RawHumidity
		r[1] = byte(h >> 12)
		r[2] = byte(h >> 4)
		r[3] = byte(h<<4) & 0xF0
	}
}
