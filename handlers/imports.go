package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songdrop/services"
	"songdrop/types"
)

// ImportHandler drives the import sequencer over HTTP: start a batch,
// inspect its progress, answer duplicate conflicts, cancel.
type ImportHandler struct {
	session *services.Session
}

// NewImportHandler creates a new import handler
func NewImportHandler(session *services.Session) *ImportHandler {
	return &ImportHandler{
		session: session,
	}
}

// startRequest names the files to import; empty means "whatever is
// selected in the inbox".
type startRequest struct {
	FileIDs []string `json:"fileIds"`
}

// StartImport launches a batch. A second batch while one is running is
// rejected; the sequencer is strictly serial by design.
func (h *ImportHandler) StartImport(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid import request",
			})
			return
		}
	}

	if err := h.session.StartImport(req.FileIDs); err != nil {
		if errors.Is(err, services.ErrImportActive) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "import batch started",
	})
}

// CurrentImport reports batch state: whether one is running, any conflict
// awaiting a decision, and the last completed summary.
func (h *ImportHandler) CurrentImport(c *gin.Context) {
	active, conflict, summary := h.session.Status()
	c.JSON(http.StatusOK, gin.H{
		"active":   active,
		"conflict": conflict,
		"summary":  summary,
	})
}

// decisionRequest resolves the pending duplicate conflict.
type decisionRequest struct {
	Decision types.Decision `json:"decision"`
}

// Decide answers the pending duplicate conflict with force or skip.
func (h *ImportHandler) Decide(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid decision body",
		})
		return
	}

	if err := h.session.Decide(req.Decision); err != nil {
		if errors.Is(err, services.ErrNoPendingConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "decision recorded",
	})
}

// CancelImport abandons the running batch at the next file boundary.
func (h *ImportHandler) CancelImport(c *gin.Context) {
	h.session.CancelImport()
	c.JSON(http.StatusOK, gin.H{
		"message": "import batch cancelled",
	})
}
