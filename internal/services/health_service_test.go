package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthService_FileOnlyMode(t *testing.T) {
	svc := NewHealthService(nil, "1.2.3")

	health := svc.HealthCheck(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.GreaterOrEqual(t, health.UptimeSeconds, 0.0)

	ready := svc.ReadinessCheck(context.Background())
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "disabled", ready.History)
}
