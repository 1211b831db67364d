package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloudpico-node/internal/reading"
)

func quietClient() *Client {
	return NewClient(Options{
		Broker:   "127.0.0.1",
		Port:     1,
		ClientID: "test",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestClient_PublishRequiresConnection(t *testing.T) {
	c := quietClient()
	if err := c.PublishTelemetry(Telemetry{StationID: "A"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if err := c.PublishStatus(Status{StationID: "A"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestClient_ConnectAfterDisconnect(t *testing.T) {
	c := quietClient()
	c.Disconnect()
	c.Disconnect()
	if err := c.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestClient_ConnectHonoursContext(t *testing.T) {
	c := quietClient()
	defer c.Disconnect()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := c.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestTopics(t *testing.T) {
	if got := TelemetryTopic("E661"); got != "stations/E661/telemetry" {
		t.Errorf("TelemetryTopic = %q", got)
	}
	if got := StatusTopic("E661"); got != "stations/E661/health" {
		t.Errorf("StatusTopic = %q", got)
	}
}

func TestFromReading(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	full := FromReading("E661", 7, reading.Reading{Temperature: 25.08, Pressure: 1006.53, Humidity: 50, TakenAt: at})
	data, err := json.Marshal(full)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"station_id":"E661","timestamp":"2024-05-01T12:00:00Z","temperature_c":25.08,"humidity_pct":50,"pressure_hpa":1006.53,"sequence":7}`
	if string(data) != want {
		t.Fatalf("json = %s\nwant  %s", data, want)
	}

	partial := FromReading("E661", 8, reading.Reading{Humidity: 41.2, TakenAt: at})
	if partial.Temperature != nil || partial.Pressure != nil {
		t.Fatalf("failed P/T read should be omitted: %+v", partial)
	}
	if partial.Humidity == nil || *partial.Humidity != 41.2 {
		t.Fatalf("humidity = %v", partial.Humidity)
	}
}
