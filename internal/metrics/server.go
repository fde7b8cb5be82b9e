package metrics

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Records   int    `json:"records"`
	Timestamp string `json:"timestamp"`
}

// NewServer returns an HTTP server exposing /metrics and /healthz on addr.
// records reports the size of the active dataset; the service is healthy once it
// is positive.
func NewServer(addr string, records func() int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", healthHandler(records))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(records func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		n := 0
		if records != nil {
			n = records()
		}
		resp := HealthResponse{
			Status:    "ok",
			Service:   "electcast",
			Records:   n,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if n <= 0 {
			resp.Status = "no dataset"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
