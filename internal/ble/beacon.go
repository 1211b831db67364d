package ble

import (
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"cloudpico-node/internal/identity"
	"cloudpico-node/internal/reading"
)

type Options struct {
	LocalName string
	Interval  time.Duration
	// Duration is how long each reading is advertised.
	Duration time.Duration
	Logger   *slog.Logger
}

// advertiser is the part of bluetooth.Advertisement the beacon drives.
type advertiser interface {
	Configure(bluetooth.AdvertisementOptions) error
	Start() error
	Stop() error
}

type Beacon struct {
	adv      advertiser
	deviceID uint32
	counter  uint32
	payload  [PayloadLen]byte
	opts     bluetooth.AdvertisementOptions
	duration time.Duration
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// Open enables the default adapter and prepares the advertisement.
func Open(deviceID uint32, o Options) (*Beacon, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	return newBeacon(adapter.DefaultAdvertisement(), deviceID, o), nil
}

func newBeacon(adv advertiser, deviceID uint32, o Options) *Beacon {
	if o.LocalName == "" {
		o.LocalName = "cloudpico-node"
	}
	if o.Interval <= 0 {
		o.Interval = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	b := &Beacon{
		adv:      adv,
		deviceID: deviceID,
		duration: o.Duration,
		sleep:    time.Sleep,
		logger:   o.Logger,
	}
	b.opts = bluetooth.AdvertisementOptions{
		AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
		LocalName:         o.LocalName,
		Interval:          bluetooth.NewDuration(o.Interval),
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: CompanyID, Data: b.payload[:]},
		},
	}
	return b
}

// Send advertises r for the configured duration and returns its reading id.
func (b *Beacon) Send(r reading.Reading) (uint32, error) {
	id := b.counter
	b.counter++

	EncodePayload(&b.payload, b.deviceID, id, r)
	if err := b.adv.Configure(b.opts); err != nil {
		return 0, fmt.Errorf("configure advertisement: %w", err)
	}
	if err := b.adv.Start(); err != nil {
		_ = b.adv.Stop()
		return 0, fmt.Errorf("start advertisement: %w", err)
	}
	b.sleep(b.duration)
	if err := b.adv.Stop(); err != nil {
		b.logger.Debug("ble: stop advertisement", "err", err)
	}
	b.logger.Debug("ble: reading advertised", "reading_id", id, "data", identity.Hex(b.payload[:]))
	return id, nil
}
