package spectate

import (
	"encoding/json"
	"net/http"

	"github.com/vovakirdan/netpac/internal/metrics"
)

// StatusFunc reports the current game state for /status.
type StatusFunc func() any

// NewMux returns the HTTP surface: /ws for spectators, /metrics and
// /status as JSON, and /healthz. status may be nil.
func NewMux(hub *Hub, m *metrics.Metrics, status StatusFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Snapshot())
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		if status == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, status())
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
