package bmp280

import (
	"math"
	"testing"

	tgbmp280 "tinygo.org/x/drivers/bmp280"

	"cloudpico-node/internal/bus"
)

// The tinygo driver uses the 32-bit pressure formula, so it agrees on
// temperature exactly and on pressure to within a few pascal.
func TestCompensate_AgreesWithTinyGoDriver(t *testing.T) {
	tests := []struct {
		name       string
		adcP, adcT uint32
	}{
		{"datasheet", 415148, 519888},
		{"cool", 400000, 480000},
		{"warm", 350000, 540000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := bus.NewSim()
			sim.RawPressure = tt.adcP
			sim.RawTemperature = tt.adcT

			ref := tgbmp280.New(sim)
			ref.Address = bus.SimPressureAddr
			if !ref.Connected() {
				t.Fatal("tinygo driver does not see the sensor")
			}
			ref.Configure(tgbmp280.STANDBY_1MS, tgbmp280.FILTER_OFF, tgbmp280.SAMPLING_8X, tgbmp280.SAMPLING_8X, tgbmp280.MODE_FORCED)
			milliC, err := ref.ReadTemperature()
			if err != nil {
				t.Fatalf("ReadTemperature: %v", err)
			}
			milliPa, err := ref.ReadPressure()
			if err != nil {
				t.Fatalf("ReadPressure: %v", err)
			}

			centiC, fine := CompensateTemperature(int32(tt.adcT), datasheetCoefficients)
			if got := 10 * centiC; got != milliC {
				t.Errorf("temperature = %d m°C; tinygo %d", got, milliC)
			}
			pa := HectoPascal(CompensatePressure(int32(tt.adcP), fine, datasheetCoefficients)) * 100
			if refPa := float64(milliPa) / 1000; math.Abs(pa-refPa) > 10 {
				t.Errorf("pressure = %.2f Pa; tinygo %.0f Pa", pa, refPa)
			}
		})
	}
}
