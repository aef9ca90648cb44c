package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"songdrop/services"
)

// ReceivedHandler exposes the inbox: the list of files other devices have
// pushed, selection for the next batch, removal, and a preview stream.
type ReceivedHandler struct {
	inbox services.Inbox
}

// NewReceivedHandler creates a new received-files handler
func NewReceivedHandler(inbox services.Inbox) *ReceivedHandler {
	return &ReceivedHandler{
		inbox: inbox,
	}
}

// ListReceived returns every received file in arrival order.
func (h *ReceivedHandler) ListReceived(c *gin.Context) {
	files := h.inbox.List()
	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// selectRequest is the body of a selection toggle.
type selectRequest struct {
	Selected bool `json:"selected"`
}

// SelectReceived marks or unmarks a file for the next import batch.
func (h *ReceivedHandler) SelectReceived(c *gin.Context) {
	id := c.Param("id")

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid selection body",
		})
		return
	}

	if !h.inbox.SetSelected(id, req.Selected) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "received file not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "selection updated",
	})
}

// RemoveReceived discards a received file and its staged bytes.
func (h *ReceivedHandler) RemoveReceived(c *gin.Context) {
	id := c.Param("id")
	if err := h.inbox.Remove(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "received file not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "received file removed",
	})
}

// StreamReceived streams a staged file for preview with support for range
// requests. Files are addressed by inbox id, never by path, so there is no
// traversal surface here.
func (h *ReceivedHandler) StreamReceived(c *gin.Context) {
	id := c.Param("id")

	rec, ok := h.inbox.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "received file not found",
		})
		return
	}
	if rec.StagedPath == "" {
		c.JSON(http.StatusGone, gin.H{
			"error": "staged bytes already released",
		})
		return
	}

	fileInfo, err := os.Stat(rec.StagedPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}

	file, err := os.Open(rec.StagedPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	contentType := sniffContentType(rec.StagedPath)

	// Set appropriate headers for audio streaming
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "no-store")

	// Handle range requests for seeking
	rangeHeader := c.GetHeader("Range")
	if rangeHeader != "" {
		h.handleRangeRequest(c, file, fileInfo.Size(), rangeHeader, contentType)
		return
	}

	// Stream the entire file
	c.Status(http.StatusOK)
	_, err = io.Copy(c.Writer, file)
	if err != nil {
		log.Printf("Error streaming %s: %v", rec.DisplayName, err)
	}
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *ReceivedHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader, contentType string) {
	// Parse range header (e.g., "bytes=0-1023" or "bytes=1024-")
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	rangeSpec := strings.TrimPrefix(rangeHeader, "bytes=")
	ranges := strings.Split(rangeSpec, "-")

	if len(ranges) != 2 {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	var start, end int64
	var err error

	// Parse start position
	if ranges[0] != "" {
		start, err = strconv.ParseInt(ranges[0], 10, 64)
		if err != nil || start < 0 {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	}

	// Parse end position
	if ranges[1] != "" {
		end, err = strconv.ParseInt(ranges[1], 10, 64)
		if err != nil || end < start {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	} else {
		end = fileSize - 1
	}

	// Validate range bounds
	if start >= fileSize {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	contentLength := end - start + 1

	// Seek to start position
	_, err = file.Seek(start, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	// Set partial content headers
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Header("Accept-Ranges", "bytes")
	c.Status(http.StatusPartialContent)

	// Copy only the requested range
	_, err = io.CopyN(c.Writer, file, contentLength)
	if err != nil {
		log.Printf("Error streaming range %d-%d: %v", start, end, err)
	}
}
