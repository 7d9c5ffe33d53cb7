package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

// BackupHandler exports and imports the tracked-application list.
type BackupHandler struct {
	registry *services.RegistryService
}

// NewBackupHandler creates a new BackupHandler instance.
func NewBackupHandler(registry *services.RegistryService) *BackupHandler {
	return &BackupHandler{registry: registry}
}

// Export returns the tracked list as a portable JSON document: bundle paths
// and feature flags, never patch or protection state.
func (h *BackupHandler) Export(c *gin.Context) {
	data, err := h.registry.Export()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=ghostframe-backup.json")
	c.JSON(http.StatusOK, data)
}

// Import tracks the applications from an exported document. Entries are
// re-resolved against this machine's disk; missing or already-tracked ones
// are counted as skipped rather than failing the whole import.
func (h *BackupHandler) Import(c *gin.Context) {
	var data models.ExportData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid backup data: " + err.Error()})
		return
	}
	if len(data.Apps) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no apps found in backup"})
		return
	}

	result, err := h.registry.Import(&data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "import completed",
		"added":   result.Added,
		"skipped": result.Skipped,
	})
}
