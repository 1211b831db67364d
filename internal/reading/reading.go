// Package reading takes one combined pressure, temperature and humidity
// sample per cycle.
package reading

import (
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Reading is one cycle's sample. Zero fields mean the sensor failed for
// that cycle.
type Reading struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    float64 // %RH
	TakenAt     time.Time
}

// Env expresses the reading in periph's fixed-point units.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(r.Temperature*float64(physic.Celsius)),
		Pressure:    physic.Pressure(r.Pressure * float64(hectoPascal)),
		Humidity:    physic.RelativeHumidity(r.Humidity * float64(physic.PercentRH)),
	}
}

func (r Reading) LogValue() slog.Value {
	env := r.Env()
	return slog.GroupValue(
		slog.String("temperature", env.Temperature.String()),
		slog.String("pressure", env.Pressure.String()),
		slog.String("humidity", env.Humidity.String()),
	)
}

const hectoPascal = 100 * physic.Pascal

// PTSource yields compensated temperature (°C) and pressure (hPa).
type PTSource interface {
	Sample() (temperatureC, pressureHPa float64, err error)
}

// HumiditySource yields relative humidity (%RH).
type HumiditySource interface {
	ReadHumidity() (float64, error)
}

// Cycle samples both sensors in sequence.
type Cycle struct {
	pt     PTSource
	rh     HumiditySource
	logger *slog.Logger
	now    func() time.Time
}

func NewCycle(pt PTSource, rh HumiditySource, logger *slog.Logger) *Cycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cycle{pt: pt, rh: rh, logger: logger, now: time.Now}
}

// Take samples pressure/temperature then humidity. A failing sensor is
// logged and contributes zeros; it never stops the cycle.
func (c *Cycle) Take() Reading {
	r := Reading{TakenAt: c.now()}

	temp, press, err := c.pt.Sample()
	if err != nil {
		c.logger.Warn("pressure/temperature read failed", "error", err)
	} else {
		r.Temperature = temp
		r.Pressure = press
	}

	hum, err := c.rh.ReadHumidity()
	if err != nil {
		c.logger.Warn("humidity read failed", "error", err)
	} else {
		r.Humidity = hum
	}

	return r
}
