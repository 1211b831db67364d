package bmp280

import (
	"fmt"

	"cloudpico-node/internal/bus"
)

const (
	// DefaultAddress is the SDO-low address.
	DefaultAddress = 0x76

	RegCalibration = 0x88
	RegCtrlMeas    = 0xF4
	RegPressMSB    = 0xF7

	// osrs_t x8, osrs_p x8, normal mode
	ctrlMeasNormal = 0x93
)

// Raw is one uncompensated pressure/temperature sample pair.
type Raw struct {
	Pressure    int32
	Temperature int32
}

// Device is a configured BMP280 holding its calibration for the process
// lifetime.
type Device struct {
	session *bus.Session
	coeffs  Coefficients
}

// New loads the calibration block and puts the sensor in normal mode. Any
// bus error here means the device cannot be used.
func New(s *bus.Session) (*Device, error) {
	block, err := s.ReadRegister(RegCalibration, CalibrationLen)
	if err != nil {
		return nil, fmt.Errorf("bmp280 read calibration: %w", err)
	}
	coeffs, err := LoadCoefficients(block)
	if err != nil {
		return nil, err
	}
	if err := s.Write([]byte{RegCtrlMeas, ctrlMeasNormal}); err != nil {
		return nil, fmt.Errorf("bmp280 configure: %w", err)
	}
	return &Device{session: s, coeffs: coeffs}, nil
}

// Coefficients returns the calibration loaded at bring-up.
func (d *Device) Coefficients() Coefficients { return d.coeffs }

// ReadRaw burst-reads press_msb..temp_xlsb and assembles both 20-bit values.
func (d *Device) ReadRaw() (Raw, error) {
	buf, err := d.session.ReadRegister(RegPressMSB, 6)
	if err != nil {
		return Raw{}, err
	}
	return Raw{
		Pressure:    int32(buf[0])<<12 | int32(buf[1])<<4 | int32(buf[2])>>4,
		Temperature: int32(buf[3])<<12 | int32(buf[4])<<4 | int32(buf[5])>>4,
	}, nil
}

// Sample reads one raw pair and compensates it. The fine temperature lives
// only for the duration of this call.
func (d *Device) Sample() (temperatureC, pressureHPa float64, err error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return 0, 0, err
	}
	centiC, fine := CompensateTemperature(raw.Temperature, d.coeffs)
	p := CompensatePressure(raw.Pressure, fine, d.coeffs)
	return Celsius(centiC), HectoPascal(p), nil
}
