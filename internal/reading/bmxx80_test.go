package reading

import (
	"fmt"
	"math"
	"testing"

	"cloudpico-node/internal/bus"
)

func TestBMXX80Source_SimulatedBMP280(t *testing.T) {
	sim := bus.NewSim()
	src, err := NewBMXX80Source(sim, bus.SimPressureAddr)
	if err != nil {
		t.Fatalf("NewBMXX80Source: %v", err)
	}
	defer src.Halt()

	temp, press, err := src.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(temp-25.08) > 1e-6 {
		t.Errorf("temperature = %v; want 25.08", temp)
	}
	if math.Abs(press-1006.5325390625) > 1e-9 {
		t.Errorf("pressure = %v hPa; want 1006.5325390625", press)
	}
	if got := fmt.Sprintf("%.2f", press); got != "1006.53" {
		t.Errorf("pressure formats as %s", got)
	}
}

func TestBMXX80Source_RejectsAddress(t *testing.T) {
	if _, err := NewBMXX80Source(bus.NewSim(), bus.SimHumidityAddr); err == nil {
		t.Fatal("expected error for an address the driver does not accept")
	}
}
