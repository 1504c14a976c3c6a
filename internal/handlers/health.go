package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthHandler answers liveness probes for the relay.
type HealthHandler struct{}

// Handle implements GET /healthz.
func (HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
