package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cloudpico-node/internal/delivery"
	"cloudpico-node/internal/reading"
)

// CycleView is the JSON form of one completed cycle.
type CycleView struct {
	Sequence    int       `json:"sequence"`
	SensorID    string    `json:"sensor_id"`
	TakenAt     time.Time `json:"taken_at"`
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_pct"`
	Pressure    float64   `json:"pressure_hpa"`
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	Truncated   bool      `json:"truncated"`
	ElapsedMS   int64     `json:"elapsed_ms"`
}

// Status tracks the latest cycle and fans it out to the feed.
type Status struct {
	sensorID string
	target   string
	started  time.Time
	stats    func() delivery.Stats
	feed     *Feed

	mu   sync.RWMutex
	last *CycleView
}

func NewStatus(sensorID, target string, stats func() delivery.Stats, feed *Feed) *Status {
	return &Status{
		sensorID: sensorID,
		target:   target,
		started:  time.Now(),
		stats:    stats,
		feed:     feed,
	}
}

// Observe records a finished cycle.
func (s *Status) Observe(_ context.Context, seq int, r reading.Reading, res delivery.Result) error {
	v := CycleView{
		Sequence:    seq,
		SensorID:    s.sensorID,
		TakenAt:     r.TakenAt,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		State:       res.State.String(),
		Truncated:   res.Truncated,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}

	s.mu.Lock()
	s.last = &v
	s.mu.Unlock()

	if s.feed != nil {
		s.feed.Broadcast(v)
	}
	return nil
}

func (s *Status) Last() (CycleView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return CycleView{}, false
	}
	return *s.last, true
}

func (s *Status) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sensor_id": s.sensorID,
		"uptime_s":  int64(time.Since(s.started).Seconds()),
	})
}

func (s *Status) handleLast(w http.ResponseWriter, _ *http.Request) {
	v, ok := s.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no cycle completed yet")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Status) handleStats(w http.ResponseWriter, _ *http.Request) {
	var st delivery.Stats
	if s.stats != nil {
		st = s.stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target":    s.target,
		"attempts":  st.Attempts,
		"releases":  st.Releases,
		"succeeded": st.Succeeded,
		"failed":    st.Failed,
		"timed_out": st.TimedOut,
	})
}
