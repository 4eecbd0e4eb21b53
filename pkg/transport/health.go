package transport

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the liveness probe payload.
type HealthStatus struct {
	// Status is always "healthy" when the server responds at all.
	Status        string `json:"status"`
	Timestamp     int64  `json:"timestamp"`
	Version       string `json:"version"`
	SessionCount  int    `json:"session_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth answers the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:        "healthy",
		Timestamp:     time.Now().Unix(),
		Version:       s.serverVersion,
		SessionCount:  s.engine.SessionCount(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}
