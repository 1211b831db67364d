package app

import (
	"context"
	"errors"
	"log/slog"

	"cloudpico-node/internal/ble"
	"cloudpico-node/internal/delivery"
	"cloudpico-node/internal/journal"
	"cloudpico-node/internal/mqtt"
	"cloudpico-node/internal/reading"
)

type journalSink struct {
	j        *journal.Journal
	sensorID string
}

func (s journalSink) Observe(ctx context.Context, _ int, r reading.Reading, res delivery.Result) error {
	e := journal.Entry{
		TakenAt:       r.TakenAt,
		SensorID:      s.sensorID,
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		Pressure:      r.Pressure,
		State:         res.State.String(),
		ResponseBytes: len(res.Response),
		Truncated:     res.Truncated,
		Elapsed:       res.Elapsed,
	}
	if res.Err != nil {
		e.Err = res.Err.Error()
	}
	_, err := s.j.Record(ctx, e)
	return err
}

type publisher interface {
	IsConnected() bool
	PublishTelemetry(mqtt.Telemetry) error
	PublishStatus(mqtt.Status) error
}

type mqttSink struct {
	c        publisher
	sensorID string
	stats    func() delivery.Stats
	logger   *slog.Logger
}

func (s mqttSink) Observe(_ context.Context, seq int, r reading.Reading, res delivery.Result) error {
	if !s.c.IsConnected() {
		s.logger.Debug("mqtt mirror skipped, broker not connected", "seq", seq)
		return nil
	}
	st := s.stats()
	return errors.Join(
		s.c.PublishTelemetry(mqtt.FromReading(s.sensorID, seq, r)),
		s.c.PublishStatus(mqtt.Status{
			StationID:     s.sensorID,
			LastSeen:      r.TakenAt,
			Healthy:       res.State.Succeeded(),
			DeliveryState: res.State.String(),
			Attempts:      st.Attempts,
			Succeeded:     st.Succeeded,
		}),
	)
}

type beaconSender interface {
	Send(reading.Reading) (uint32, error)
}

type bleSink struct {
	b beaconSender
}

func (s bleSink) Observe(_ context.Context, _ int, r reading.Reading, _ delivery.Result) error {
	_, err := s.b.Send(r)
	return err
}

var (
	_ beaconSender = (*ble.Beacon)(nil)
	_ publisher    = (*mqtt.Client)(nil)
)
