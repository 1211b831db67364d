package bus

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Bus clocks for the pressure and humidity sensors.
const (
	PressureBusSpeed = 400 * physic.KiloHertz
	HumidityBusSpeed = 100 * physic.KiloHertz
)

// OpenPeriph initialises the periph host drivers and opens the named I2C bus
// ("" picks the first one, usually /dev/i2c-1). A bus that does not support
// changing its clock keeps its default.
func OpenPeriph(name string, speed physic.Frequency) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}

	if speed > 0 {
		if err := b.SetSpeed(speed); err != nil {
			slog.Debug("i2c bus speed not applied", "bus", b.String(), "speed", speed.String(), "error", err)
		}
	}
	return b, nil
}
