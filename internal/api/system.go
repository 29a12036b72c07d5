package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/stagetwo/webgate/internal/auth"
)

// healthCheckTimeout bounds the dependency checks in /api/health.
const healthCheckTimeout = 2 * time.Second

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	AuthEnabled   bool            `json:"auth_enabled"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	Auth          auth.Stats      `json:"auth"`
	Secret        SecretStatus    `json:"secret"`
	MQTT          ConnStatus      `json:"mqtt"`
	InfluxDB      ConnStatus      `json:"influxdb"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// SecretStatus is the secret store's health without the secret itself.
type SecretStatus struct {
	Stored      bool `json:"stored"`
	Length      int  `json:"length"`
	Degraded    bool `json:"degraded"`
	WeakEntropy bool `json:"weak_entropy"`
}

// ConnStatus reports an optional outbound connection.
type ConnStatus struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	Enabled         bool   `json:"enabled"`
	SchemaVersion   string `json:"schema_version,omitempty"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
}

// handleHealth returns the server health status. It is open so load
// balancers and the screen process can poll it without a token.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	if s.secrets.Degraded() {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
	})
}

// handleStatus returns version, uptime, runtime, auth and dependency state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	info := s.secrets.Info()
	status := StatusResponse{
		Timestamp:     s.now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(s.now().Sub(s.startTime).Seconds()),
		AuthEnabled:   s.gate.Required,
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Auth: s.auth.Stats(),
		Secret: SecretStatus{
			Stored:      info.Stored,
			Length:      info.Length,
			Degraded:    info.Degraded,
			WeakEntropy: info.WeakEntropy,
		},
		MQTT: ConnStatus{
			Enabled:   s.mqtt != nil,
			Connected: s.mqtt != nil && s.mqtt.IsConnected(),
		},
		InfluxDB: ConnStatus{
			Enabled:   s.influx != nil,
			Connected: s.influx != nil && s.influx.IsConnected(),
		},
	}

	if s.db != nil {
		st := s.db.Stats()
		status.Database = DatabaseMetrics{
			Enabled:         true,
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		version, err := s.db.SchemaVersion(ctx)
		if err != nil {
			s.logger.Warn("reading schema version failed", "error", err)
		}
		status.Database.SchemaVersion = version
	}

	writeJSON(w, http.StatusOK, status)
}
