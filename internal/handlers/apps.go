// Package handlers provides HTTP request handlers for the control API the
// menu bar UI and CLI talk to.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostFramer/GhostFrame/internal/locator"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/patch"
	"github.com/GhostFramer/GhostFrame/internal/services"
	"github.com/GhostFramer/GhostFrame/internal/validation"
)

// AppHandler handles HTTP requests for tracked-application management.
type AppHandler struct {
	registry *services.RegistryService
}

// NewAppHandler creates a new AppHandler instance.
func NewAppHandler(registry *services.RegistryService) *AppHandler {
	return &AppHandler{registry: registry}
}

// List returns all tracked applications.
func (h *AppHandler) List(c *gin.Context) {
	apps, err := h.registry.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, apps)
}

// Get returns a single tracked application by ID.
func (h *AppHandler) Get(c *gin.Context) {
	app, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Discover returns installed applications eligible for tracking but not yet
// tracked.
func (h *AppHandler) Discover(c *gin.Context) {
	candidates, err := h.registry.Discover()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, candidates)
}

// Create starts tracking the application at the submitted bundle path.
func (h *AppHandler) Create(c *gin.Context) {
	var req models.TrackAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateBundlePath(req.Path); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.registry.Add(req.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// Delete stops tracking an application. The record is always removed; if the
// pre-removal unpatch failed, the response carries a warning so the UI can
// tell the user the target may still be patched.
func (h *AppHandler) Delete(c *gin.Context) {
	result, err := h.registry.Remove(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"message": "app removed"}
	if result.RestoreErr != nil {
		body["warning"] = "entry script could not be restored: " + result.RestoreErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

// SetProtection toggles the master protection flag.
func (h *AppHandler) SetProtection(c *gin.Context) {
	var req models.SetProtectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.registry.SetProtection(c.Param("id"), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// SetFeature toggles one feature flag.
func (h *AppHandler) SetFeature(c *gin.Context) {
	var req models.SetFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.registry.SetFeature(c.Param("id"), c.Param("feature"), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Repair force-restores the application's entry script from backup.
func (h *AppHandler) Repair(c *gin.Context) {
	app, err := h.registry.Repair(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Restart relaunches the application's process in the background. Completion
// is reported on the event stream, so the response is just an acceptance.
func (h *AppHandler) Restart(c *gin.Context) {
	app, err := h.registry.Restart(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, app)
}

// RunningState returns a point-in-time process snapshot for the application.
func (h *AppHandler) RunningState(c *gin.Context) {
	state, err := h.registry.RunningState(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// respondError maps registry errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAppNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
	case errors.Is(err, services.ErrAppExists):
		c.JSON(http.StatusConflict, gin.H{"error": "app already tracked"})
	case errors.Is(err, services.ErrAppBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidFeature):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, locator.ErrNotEligible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, patch.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
