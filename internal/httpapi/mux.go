package httpapi

import "net/http"

func NewMux(status *Status, feed *Feed) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", status.handleHealthz)
	mux.HandleFunc("GET /api/v1/last", status.handleLast)
	mux.HandleFunc("GET /api/v1/stats", status.handleStats)
	if feed != nil {
		mux.HandleFunc("GET /ws", feed.handleWS)
	}
	return mux
}
