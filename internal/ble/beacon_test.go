package ble

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	"cloudpico-node/internal/reading"
)

type fakeAdvertiser struct {
	configured []bluetooth.AdvertisementOptions
	data       [][]byte
	starts     int
	stops      int
	startErr   error
}

func (f *fakeAdvertiser) Configure(o bluetooth.AdvertisementOptions) error {
	f.configured = append(f.configured, o)
	f.data = append(f.data, append([]byte(nil), o.ManufacturerData[0].Data...))
	return nil
}
func (f *fakeAdvertiser) Start() error { f.starts++; return f.startErr }
func (f *fakeAdvertiser) Stop() error  { f.stops++; return nil }

func TestPayload_RoundTrip(t *testing.T) {
	var buf [PayloadLen]byte
	r := reading.Reading{Temperature: 25.08, Pressure: 1006.5325, Humidity: 50}

	EncodePayload(&buf, 0xE6614103, 42, r)

	if buf[0] != 0x01 || buf[1] != 0xD0 {
		t.Fatalf("magic = %02X %02X", buf[0], buf[1])
	}
	if buf[2] != 0x03 || buf[5] != 0xE6 {
		t.Fatalf("device id not little-endian: % X", buf[2:6])
	}
	p, err := DecodePayload(buf[:])
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.DeviceID != 0xE6614103 || p.ReadingID != 42 {
		t.Fatalf("ids = %X %d", p.DeviceID, p.ReadingID)
	}
	for name, pair := range map[string][2]float64{
		"temperature": {p.Temperature, r.Temperature},
		"pressure":    {p.Pressure, r.Pressure},
		"humidity":    {p.Humidity, r.Humidity},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-3 {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
}

func TestDecodePayload_Rejects(t *testing.T) {
	if _, err := DecodePayload(make([]byte, PayloadLen-1)); err == nil {
		t.Error("short payload accepted")
	}
	bad := make([]byte, PayloadLen)
	bad[0], bad[1] = 0x01, 0xD1
	if _, err := DecodePayload(bad); err == nil {
		t.Error("bad magic accepted")
	}
}

func TestDeviceID(t *testing.T) {
	if got := DeviceID("E6614103E7452D2F"); got != 0xE6614103 {
		t.Errorf("DeviceID(hex) = %X", got)
	}
	a, b := DeviceID("node-kitchen"), DeviceID("node-garage")
	if a == b {
		t.Errorf("distinct names collide: %X", a)
	}
	if DeviceID("node-kitchen") != a {
		t.Error("DeviceID not deterministic")
	}
}

func TestBeacon_SendAdvertisesAndCounts(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := newBeacon(adv, 7, Options{Duration: 600 * time.Millisecond, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	var slept []time.Duration
	b.sleep = func(d time.Duration) { slept = append(slept, d) }

	for want := uint32(0); want < 3; want++ {
		id, err := b.Send(reading.Reading{Temperature: float64(want)})
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if id != want {
			t.Fatalf("id = %d, want %d", id, want)
		}
	}

	if adv.starts != 3 || adv.stops != 3 {
		t.Fatalf("starts=%d stops=%d", adv.starts, adv.stops)
	}
	if len(slept) != 3 || slept[0] != 600*time.Millisecond {
		t.Fatalf("slept = %v", slept)
	}
	p, err := DecodePayload(adv.data[2])
	if err != nil {
		t.Fatal(err)
	}
	if p.ReadingID != 2 || p.Temperature != 2 || p.DeviceID != 7 {
		t.Fatalf("last payload = %+v", p)
	}
	if adv.configured[0].ManufacturerData[0].CompanyID != CompanyID {
		t.Fatalf("company id = %X", adv.configured[0].ManufacturerData[0].CompanyID)
	}
}

func TestBeacon_StartFailureStops(t *testing.T) {
	adv := &fakeAdvertiser{startErr: errors.New("busy")}
	b := newBeacon(adv, 1, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	b.sleep = func(time.Duration) { t.Fatal("slept after failed start") }

	if _, err := b.Send(reading.Reading{}); err == nil {
		t.Fatal("want error")
	}
	if adv.stops != 1 {
		t.Fatalf("stops = %d", adv.stops)
	}
}
