package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-node/internal/aht10"
	"cloudpico-node/internal/ble"
	"cloudpico-node/internal/bmp280"
	"cloudpico-node/internal/bus"
	"cloudpico-node/internal/config"
	"cloudpico-node/internal/delivery"
	"cloudpico-node/internal/httpapi"
	"cloudpico-node/internal/identity"
	"cloudpico-node/internal/journal"
	"cloudpico-node/internal/mqtt"
	"cloudpico-node/internal/netup"
	"cloudpico-node/internal/reading"
	"cloudpico-node/internal/transport"

	"periph.io/x/conn/v3/i2c"
)

// Run brings the node up and runs the cycle loop until ctx ends. Any error
// it returns is a startup failure.
func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()

	boardID, err := identity.Resolve(cfg.DeviceID, identity.DefaultMachineIDPath, logger)
	if err != nil {
		return err
	}
	target := delivery.Target{
		Host:   cfg.TargetHost,
		Port:   cfg.TargetPort,
		Path:   cfg.TargetPath,
		APIKey: cfg.APIKey,
	}
	logger.Info("initializing node",
		"board_id", boardID,
		"target", target.Addr(),
		"path", target.Path,
		"bus_backend", cfg.BusBackend,
		"pt_driver", cfg.PTDriver,
		"interval", cfg.SendInterval,
	)

	addr, err := netup.Waiter{Logger: logger}.Wait(ctx, cfg.TargetHost, cfg.NetworkWait)
	if err != nil {
		return fmt.Errorf("network bring-up: %w", err)
	}
	logger.Info("network ready", "addr", addr)

	sensors, err := openSensors(cfg, logger)
	if err != nil {
		return err
	}
	defer sensors.close(logger)

	machine := delivery.New(
		transport.NewTCPFactory(transport.TCPOptions{DialTimeout: cfg.DeliveryPollInterval}),
		target,
		delivery.Options{
			PollInterval: cfg.DeliveryPollInterval,
			Timeout:      cfg.DeliveryTimeout,
			Logger:       logger,
		},
	)

	var sinks []NamedSink

	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Error("journal close", "error", err)
			}
		}()
		sinks = append(sinks, NamedSink{Name: "journal", Sink: journalSink{j: j, sensorID: boardID}})
	}

	if cfg.MQTTBroker != "" {
		client := mqtt.NewClient(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
			Logger:   logger,
		})
		go func() {
			if err := client.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		defer client.Disconnect()
		sinks = append(sinks, NamedSink{Name: "mqtt", Sink: mqttSink{
			c:        client,
			sensorID: boardID,
			stats:    machine.Stats,
			logger:   logger,
		}})
	}

	if cfg.BLEAdvertise {
		beacon, err := ble.Open(ble.DeviceID(boardID), ble.Options{
			Duration: cfg.BLEAdvertiseDuration,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("ble beacon could not be initialized; node continues without BLE", "error", err)
		} else {
			sinks = append(sinks, NamedSink{Name: "ble", Sink: bleSink{b: beacon}})
		}
	}

	if cfg.StatusAddr != "" {
		feed := httpapi.NewFeed()
		status := httpapi.NewStatus(boardID, target.Addr(), machine.Stats, feed)
		sinks = append(sinks, NamedSink{Name: "status", Sink: status})

		srv := httpapi.NewServer(cfg.StatusAddr, httpapi.NewMux(status, feed))
		go feed.Run(ctx)
		go func() {
			logger.Info("status server listening", "addr", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown", "error", err)
			}
		}()
	}

	sched := NewScheduler(reading.NewCycle(sensors.pt, sensors.rh, logger), machine, SchedulerOptions{
		SensorID: boardID,
		Interval: cfg.SendInterval,
		Sinks:    sinks,
		Logger:   logger,
	})
	err = sched.Run(ctx)

	st := machine.Stats()
	logger.Info("node stopping",
		"attempts", st.Attempts,
		"releases", st.Releases,
		"succeeded", st.Succeeded,
		"failed", st.Failed,
		"timed_out", st.TimedOut,
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type sensorSet struct {
	pt      reading.PTSource
	rh      reading.HumiditySource
	closers []io.Closer
}

func (s *sensorSet) close(logger *slog.Logger) {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.Warn("close sensor bus", "error", err)
		}
	}
}

type halter struct{ h interface{ Halt() error } }

func (h halter) Close() error { return h.h.Halt() }

// openSensors opens both buses and brings both sensors up. Any failure is
// fatal.
func openSensors(cfg config.Config, logger *slog.Logger) (*sensorSet, error) {
	set := &sensorSet{}
	fail := func(err error) (*sensorSet, error) {
		set.close(logger)
		return nil, err
	}

	var ptBus, rhBus i2c.BusCloser
	switch cfg.BusBackend {
	case config.BusSim:
		sim := bus.NewSim()
		ptBus, rhBus = sim, sim
		set.closers = append(set.closers, sim)
		logger.Warn("using simulated sensor bus")
	default:
		var err error
		if ptBus, err = bus.OpenPeriph(cfg.PTBus, bus.PressureBusSpeed); err != nil {
			return fail(fmt.Errorf("pressure sensor bus: %w", err))
		}
		set.closers = append(set.closers, ptBus)
		if rhBus, err = bus.OpenPeriph(cfg.RHBus, bus.HumidityBusSpeed); err != nil {
			return fail(fmt.Errorf("humidity sensor bus: %w", err))
		}
		set.closers = append(set.closers, rhBus)
	}

	switch cfg.PTDriver {
	case config.DriverBMXX80:
		src, err := reading.NewBMXX80Source(ptBus, cfg.PTAddress)
		if err != nil {
			return fail(err)
		}
		set.closers = append([]io.Closer{halter{src}}, set.closers...)
		set.pt = src
	default:
		dev, err := bmp280.New(bus.NewSession(ptBus, cfg.PTAddress))
		if err != nil {
			return fail(fmt.Errorf("bmp280 bring-up: %w", err))
		}
		c := dev.Coefficients()
		logger.Debug("bmp280 calibration loaded", "t1", c.T1, "p1", c.P1)
		set.pt = dev
	}

	rh, err := aht10.New(bus.NewSession(rhBus, cfg.RHAddress), cfg.HumiditySettle)
	if err != nil {
		return fail(fmt.Errorf("aht10 bring-up: %w", err))
	}
	set.rh = rh

	logger.Info("sensors ready",
		"pt_address", fmt.Sprintf("0x%02X", cfg.PTAddress),
		"rh_address", fmt.Sprintf("0x%02X", cfg.RHAddress),
	)
	return set, nil
}
