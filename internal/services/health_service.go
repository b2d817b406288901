package services

import (
	"context"
	"time"

	"treatylens/internal/history"
)

// HealthService reports process and dependency health.
type HealthService struct {
	history   *history.Repository
	version   string
	startedAt time.Time
}

func NewHealthService(repo *history.Repository, version string) *HealthService {
	return &HealthService{
		history:   repo,
		version:   version,
		startedAt: time.Now().UTC(),
	}
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// ReadinessStatus adds dependency checks to the liveness payload.
type ReadinessStatus struct {
	HealthStatus
	History string `json:"history"`
}

func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:        "ok",
		Version:       s.version,
		StartedAt:     s.startedAt,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
}

// ReadinessCheck pings the history database when one is configured. A
// disabled repository is still ready: the service runs file-only.
func (s *HealthService) ReadinessCheck(ctx context.Context) ReadinessStatus {
	status := ReadinessStatus{HealthStatus: s.HealthCheck(ctx), History: "disabled"}
	if s.history == nil {
		return status
	}
	if err := s.history.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.History = "unreachable: " + err.Error()
		return status
	}
	status.History = "connected"
	return status
}
