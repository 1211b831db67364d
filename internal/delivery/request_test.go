package delivery

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"cloudpico-node/internal/reading"
)

func TestRequest_Body(t *testing.T) {
	req := Request{Temperature: 23.456, Humidity: 60.1, Pressure: 1013.25, SensorID: "E6614103E7452D2F"}

	want := `{"temperature":23.46, "humidity":"60.10", "pressure":"1013.25", "sensor_id":"E6614103E7452D2F"}`
	if got := req.Body(); got != want {
		t.Fatalf("body\n got: %s\nwant: %s", got, want)
	}
}

func TestRequest_BodyZeroReading(t *testing.T) {
	req := NewRequest(reading.Reading{}, "ABCD")

	want := `{"temperature":0.00, "humidity":"0.00", "pressure":"0.00", "sensor_id":"ABCD"}`
	if got := req.Body(); got != want {
		t.Fatalf("body=%s want=%s", got, want)
	}
}

func TestRequest_Message(t *testing.T) {
	req := NewRequest(reading.Reading{
		Temperature: 23.456,
		Humidity:    60.1,
		Pressure:    1013.25,
		TakenAt:     time.Unix(0, 0),
	}, "E6614103E7452D2F")
	target := Target{Host: "collector.example", Port: 8080, Path: "/api/readings", APIKey: "secret"}

	body := req.Body()
	want := "POST /api/readings HTTP/1.1\r\n" +
		"Host: collector.example\r\n" +
		"x-api-key: secret\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		body

	got := string(req.Message(target))
	if got != want {
		t.Fatalf("message\n got: %q\nwant: %q", got, want)
	}

	_, gotBody, ok := strings.Cut(got, "\r\n\r\n")
	if !ok {
		t.Fatal("no header terminator")
	}
	if len(gotBody) != len(body) {
		t.Fatalf("body len=%d Content-Length=%d", len(gotBody), len(body))
	}
}

func TestTarget_Addr(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{Target{Host: "10.0.0.5", Port: 80}, "10.0.0.5:80"},
		{Target{Host: "collector.local", Port: 8080}, "collector.local:8080"},
		{Target{Host: "::1", Port: 9000}, "[::1]:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.target.Addr(); got != tt.want {
				t.Fatalf("Addr()=%q want=%q", got, tt.want)
			}
		})
	}
}
