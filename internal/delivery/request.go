package delivery

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"cloudpico-node/internal/reading"
)

// Target is the static collector endpoint.
type Target struct {
	Host   string
	Port   int
	Path   string
	APIKey string
}

// Addr is the dial address (host:port).
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Request is the payload of one delivery attempt.
type Request struct {
	Temperature float64
	Humidity    float64
	Pressure    float64
	SensorID    string
}

func NewRequest(r reading.Reading, sensorID string) Request {
	return Request{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		SensorID:    sensorID,
	}
}

// Body renders the JSON document the collector expects. Humidity and
// pressure are sent as quoted strings; the collector parses them that way.
func (r Request) Body() string {
	return fmt.Sprintf(`{"temperature":%.2f, "humidity":"%.2f", "pressure":"%.2f", "sensor_id":"%s"}`,
		r.Temperature, r.Humidity, r.Pressure, r.SensorID)
}

// Message renders the complete HTTP/1.1 request for t.
func (r Request) Message(t Target) []byte {
	body := r.Body()

	var b strings.Builder
	b.Grow(256 + len(body))
	b.WriteString("POST " + t.Path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + t.Host + "\r\n")
	b.WriteString("x-api-key: " + t.APIKey + "\r\n")
	b.WriteString("Content-Type: application/json\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
