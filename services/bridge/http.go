package bridge

import (
	"encoding/json"
	"io"
	"net/http"

	"plantsense-go/types"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter exposes health and the latest readings.
func (s *Service) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/readings/latest", s.latestHandler).Methods("GET")
	r.HandleFunc("/readings/latest/{kind}", s.latestKindHandler).Methods("GET")
	return r
}

// Handler wraps the router with access logging.
func (s *Service) Handler(accessLog io.Writer) http.Handler {
	return handlers.LoggingHandler(accessLog, s.NewRouter())
}

func (s *Service) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := struct {
		Status   string   `json:"status"`
		KafkaUp  bool     `json:"kafka_up"`
		Counters Counters `json:"counters"`
	}{"ok", s.linkUp, s.counters}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Service) latestHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Latest())
}

func (s *Service) latestKindHandler(w http.ResponseWriter, r *http.Request) {
	kind := types.Kind(mux.Vars(r)["kind"])
	for _, rec := range s.Latest() {
		if rec.Kind == kind {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reading for " + string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
