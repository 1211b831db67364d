package reading

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BMXX80Source reads pressure and temperature through periph's bmxx80
// driver instead of the built-in compensation (PT_DRIVER=bmxx80).
type BMXX80Source struct {
	dev *bmxx80.Dev
}

func NewBMXX80Source(b i2c.Bus, addr uint16) (*BMXX80Source, error) {
	dev, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80 init: %w", err)
	}
	return &BMXX80Source{dev: dev}, nil
}

func (s *BMXX80Source) Sample() (float64, float64, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return 0, 0, err
	}
	return env.Temperature.Celsius(), float64(env.Pressure) / float64(hectoPascal), nil
}

// Halt stops the sensor.
func (s *BMXX80Source) Halt() error { return s.dev.Halt() }
