// Package bmp280 reads a Bosch BMP280 over I2C and turns its raw ADC values
// into °C and hPa with the datasheet's fixed-point compensation.
package bmp280

import (
	"encoding/binary"
	"errors"
)

// CalibrationLen is the size of the trimming block at RegCalibration.
const CalibrationLen = 24

var ErrShortCalibration = errors.New("bmp280: calibration block too short")

// Coefficients are the per-device trimming parameters (dig_T1..dig_P9).
type Coefficients struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16
}

// LoadCoefficients decodes the 24-byte little-endian calibration block.
func LoadCoefficients(block []byte) (Coefficients, error) {
	if len(block) < CalibrationLen {
		return Coefficients{}, ErrShortCalibration
	}
	u := func(i int) uint16 { return binary.LittleEndian.Uint16(block[2*i:]) }
	s := func(i int) int16 { return int16(u(i)) }

	return Coefficients{
		T1: u(0),
		T2: s(1),
		T3: s(2),
		P1: u(3),
		P2: s(4),
		P3: s(5),
		P4: s(6),
		P5: s(7),
		P6: s(8),
		P7: s(9),
		P8: s(10),
		P9: s(11),
	}, nil
}
