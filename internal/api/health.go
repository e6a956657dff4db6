package api

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/gridiron-dice/internal/rules"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   VersionInfo            `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// MetricsResponse reports per-operation counters
type MetricsResponse struct {
	Timestamp     string               `json:"timestamp"`
	EngineVersion string               `json:"engine_version"`
	Uptime        string               `json:"uptime"`
	ActiveMatches int                  `json:"active_matches"`
	System        SystemInfo           `json:"system"`
	Operations    map[string]OpMetrics `json:"operations"`
	RequestID     string               `json:"request_id,omitempty"`
}

// OpMetrics represents operation-specific metrics
type OpMetrics struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	ErrorRequests   uint64  `json:"error_requests"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
	LastRequest     string  `json:"last_request,omitempty"`

	totalDuration time.Duration
}

// Metrics accumulates OpMetrics per operation name
type Metrics struct {
	mu  sync.Mutex
	ops map[string]*OpMetrics
}

// NewMetrics creates an empty metrics set
func NewMetrics() *Metrics {
	return &Metrics{ops: make(map[string]*OpMetrics)}
}

// Record counts one finished operation
func (m *Metrics) Record(op string, took time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.ops[op]
	if !ok {
		om = &OpMetrics{}
		m.ops[op] = om
	}
	om.TotalRequests++
	if failed {
		om.ErrorRequests++
	} else {
		om.SuccessRequests++
	}
	om.totalDuration += took
	om.AvgDurationMs = float64(om.totalDuration.Microseconds()) / 1000 / float64(om.TotalRequests)
	om.LastRequest = time.Now().UTC().Format(time.RFC3339)
}

// Snapshot copies the current counters
func (m *Metrics) Snapshot() map[string]OpMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]OpMetrics, len(m.ops))
	for k, v := range m.ops {
		out[k] = *v
	}
	return out
}

// handleHealthCheck reports rule-table sanity and session capacity
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"rules":    s.checkRulesHealth(),
		"sessions": s.checkSessionsHealth(),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, HealthCheckResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   GetVersionInfo(),
		Uptime:    time.Since(s.startTime).String(),
		Checks:    checks,
		System:    systemInfo(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// handleLiveness provides liveness probe endpoint
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alive":          true,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"uptime":         time.Since(s.startTime).String(),
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

// handleMetrics reports operation counters
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, MetricsResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		Uptime:        time.Since(s.startTime).String(),
		ActiveMatches: s.sessions.Len(),
		System:        systemInfo(),
		Operations:    s.metrics.Snapshot(),
		RequestID:     middleware.GetReqID(r.Context()),
	})
}

// checkRulesHealth makes sure every die face maps somewhere
func (s *Server) checkRulesHealth() HealthCheck {
	status := HealthStatusHealthy
	message := fmt.Sprintf("%d outcomes, %d chaos bands", len(rules.OutcomeTable()), len(rules.ChaosTable()))
	for d6 := 1; d6 <= 6; d6++ {
		if _, err := rules.OutcomeForDie6(d6); err != nil {
			status = HealthStatusUnhealthy
			message = err.Error()
			break
		}
	}
	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
}

// checkSessionsHealth degrades once the registry is nearly full
func (s *Server) checkSessionsHealth() HealthCheck {
	active := s.sessions.Len()
	status := HealthStatusHealthy
	if active*10 >= s.cfg.MaxSessions*9 {
		status = HealthStatusDegraded
	}
	return HealthCheck{
		Status:      status,
		Message:     fmt.Sprintf("%d of %d matches in use", active, s.cfg.MaxSessions),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		GCCycles:      m.NumGC,
	}
}
