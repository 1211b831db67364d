package mqtt

import (
	"cloudpico-node/internal/reading"
)

// FromReading builds the telemetry document for one cycle. Fields whose
// sensor read failed (zero value) are omitted.
func FromReading(stationID string, seq int, r reading.Reading) Telemetry {
	t := Telemetry{
		StationID: stationID,
		Timestamp: r.TakenAt,
		Sequence:  &seq,
	}
	if r.Temperature != 0 || r.Pressure != 0 {
		temp, press := r.Temperature, r.Pressure
		t.Temperature = &temp
		t.Pressure = &press
	}
	if r.Humidity != 0 {
		hum := r.Humidity
		t.Humidity = &hum
	}
	return t
}
