package bmp280

import (
	"errors"
	"testing"
)

// datasheetBlock is the 0x88..0x9F block for the BMP280 datasheet example
// trimming values.
var datasheetBlock = []byte{
	0x70, 0x6B, // T1 27504
	0x43, 0x67, // T2 26435
	0x18, 0xFC, // T3 -1000
	0x7D, 0x8E, // P1 36477
	0x43, 0xD6, // P2 -10685
	0xD0, 0x0B, // P3 3024
	0x27, 0x0B, // P4 2855
	0x8C, 0x00, // P5 140
	0xF9, 0xFF, // P6 -7
	0x8C, 0x3C, // P7 15500
	0xF8, 0xC6, // P8 -14600
	0x70, 0x17, // P9 6000
}

var datasheetCoefficients = Coefficients{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140,
	P6: -7, P7: 15500, P8: -14600, P9: 6000,
}

func TestLoadCoefficients_Datasheet(t *testing.T) {
	got, err := LoadCoefficients(datasheetBlock)
	if err != nil {
		t.Fatalf("LoadCoefficients: %v", err)
	}
	if got != datasheetCoefficients {
		t.Errorf("got %+v\nwant %+v", got, datasheetCoefficients)
	}
}

func TestLoadCoefficients_Deterministic(t *testing.T) {
	block := make([]byte, CalibrationLen)
	for i := range block {
		block[i] = byte(i*37 + 11)
	}
	a, err := LoadCoefficients(block)
	if err != nil {
		t.Fatalf("LoadCoefficients: %v", err)
	}
	b, _ := LoadCoefficients(block)
	if a != b {
		t.Errorf("two decodes differ: %+v vs %+v", a, b)
	}
}

func TestLoadCoefficients_SignedFields(t *testing.T) {
	block := make([]byte, CalibrationLen)
	for i := range block {
		block[i] = 0xFF
	}
	got, err := LoadCoefficients(block)
	if err != nil {
		t.Fatalf("LoadCoefficients: %v", err)
	}
	if got.T1 != 0xFFFF || got.P1 != 0xFFFF {
		t.Errorf("unsigned fields: T1=%d P1=%d; want 65535", got.T1, got.P1)
	}
	if got.T2 != -1 || got.P9 != -1 {
		t.Errorf("signed fields: T2=%d P9=%d; want -1", got.T2, got.P9)
	}
}

func TestLoadCoefficients_Short(t *testing.T) {
	_, err := LoadCoefficients(datasheetBlock[:23])
	if !errors.Is(err, ErrShortCalibration) {
		t.Fatalf("err = %v; want ErrShortCalibration", err)
	}
}
