package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GhostFramer/GhostFrame/internal/metrics"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/service"
	"github.com/GhostFramer/GhostFrame/internal/services"
	"github.com/GhostFramer/GhostFrame/internal/version"
)

// SystemHandler reports daemon and host status.
type SystemHandler struct {
	registry  *services.RegistryService
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler instance.
func NewSystemHandler(registry *services.RegistryService) *SystemHandler {
	return &SystemHandler{
		registry:  registry,
		startedAt: time.Now(),
	}
}

// SystemStatus is the status panel payload.
type SystemStatus struct {
	Version        map[string]string     `json:"version"`
	StartedAt      time.Time             `json:"started_at"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
	RunningAsAgent bool                  `json:"running_as_agent"`
	AgentState     string                `json:"agent_state"`
	Host           *metrics.HostSnapshot `json:"host"`
	Registry       RegistrySummary       `json:"registry"`
}

// RegistrySummary counts tracked applications by state.
type RegistrySummary struct {
	Tracked   int `json:"tracked"`
	Protected int `json:"protected"`
	Errors    int `json:"errors"`
}

// Status returns the current daemon status.
// GET /api/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	status := SystemStatus{
		Version:        version.Info(),
		StartedAt:      h.startedAt,
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		RunningAsAgent: service.IsRunningAsService(),
	}

	if agent, err := service.Status(); err == nil {
		status.AgentState = agent.State
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if host, err := metrics.CollectHost(ctx); err == nil {
		status.Host = host
	}

	apps, err := h.registry.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status.Registry.Tracked = len(apps)
	for _, app := range apps {
		switch app.State {
		case models.StateProtected:
			status.Registry.Protected++
		case models.StateError:
			status.Registry.Errors++
		}
	}

	c.JSON(http.StatusOK, status)
}
