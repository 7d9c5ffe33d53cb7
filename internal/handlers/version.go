package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostFramer/GhostFrame/internal/version"
)

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// Get returns the daemon's build information.
// GET /api/version
func (h *VersionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, version.Info())
}
