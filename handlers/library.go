package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songdrop/library"
)

// LibraryHandler exposes the permanent library's catalog.
type LibraryHandler struct {
	lib library.Library
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(lib library.Library) *LibraryHandler {
	return &LibraryHandler{
		lib: lib,
	}
}

// ListSongs returns the catalog ordered by artist then title.
func (h *LibraryHandler) ListSongs(c *gin.Context) {
	songs := h.lib.Songs()
	c.JSON(http.StatusOK, gin.H{
		"songs": songs,
		"count": len(songs),
	})
}

// Refresh rebuilds the catalog from disk. Idempotent; it returns once the
// new view is visible.
func (h *LibraryHandler) Refresh(c *gin.Context) {
	if err := h.lib.RefreshFromDisk(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "library refresh failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "library refreshed",
		"count":   len(h.lib.Songs()),
	})
}
