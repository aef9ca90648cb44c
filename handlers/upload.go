package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"songdrop/format"
	"songdrop/services"
	"songdrop/types"
	"songdrop/websocket"
)

// UploadHandler accepts file pushes from other devices on the LAN: one
// file per request, staged into the inbox, announced over the hub.
type UploadHandler struct {
	inbox services.Inbox
	hub   websocket.Hub
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(inbox services.Inbox, hub websocket.Hub) *UploadHandler {
	return &UploadHandler{
		inbox: inbox,
		hub:   hub,
	}
}

// Upload handles POST /upload. Multipart bodies use the "file" field; raw
// bodies take their name from X-Filename or ?name=. Malformed requests get
// a 4xx and the listener keeps serving.
func (h *UploadHandler) Upload(c *gin.Context) {
	name, body, err := openUploadBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	defer body.Close()

	rec, err := h.inbox.Add(name, body)
	if err != nil {
		log.Printf("Upload of %q failed: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not stage upload",
		})
		return
	}

	mime := sniffContentType(rec.StagedPath)
	if h.hub != nil {
		h.hub.Broadcast(types.EventMessage{
			Type:      types.EventReceived,
			FileID:    rec.ID,
			Name:      rec.DisplayName,
			SizeBytes: rec.SizeBytes,
			Mime:      mime,
			Status:    rec.Status,
			Timestamp: time.Now(),
		})
	}

	log.Printf("Received %q (%d bytes, %s) from %s", rec.DisplayName, rec.SizeBytes, mime, c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{
		"message": "file received",
		"file":    rec,
		"mime":    mime,
	})
}

// openUploadBody extracts the one file a request carries, multipart or raw.
func openUploadBody(c *gin.Context) (string, io.ReadCloser, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return "", nil, errUnreadableBody
		}
		return file.Filename, src, nil
	}

	name := c.GetHeader("X-Filename")
	if name == "" {
		name = c.Query("name")
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return "", nil, errMissingBody
	}
	return name, c.Request.Body, nil
}

var (
	errMissingBody    = errors.New("request carries no file body")
	errUnreadableBody = errors.New("file part is unreadable")
)

// sniffContentType classifies the staged bytes; extension and declared
// MIME type are not trusted.
func sniffContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, format.ScanWindow)
	n, _ := io.ReadFull(f, head)
	return format.ContentType(format.Detect(head[:n]))
}

// UploadPage serves a minimal HTML form so any browser on the LAN can push
// a file without installing anything.
func (h *UploadHandler) UploadPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uploadPageHTML))
}

const uploadPageHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>songdrop</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:sans-serif;max-width:28rem;margin:3rem auto;padding:0 1rem}</style>
</head>
<body>
<h1>songdrop</h1>
<p>Send an audio file to this device.</p>
<form method="post" action="/upload" enctype="multipart/form-data">
<input type="file" name="file" accept="audio/*" required>
<button type="submit">Send</button>
</form>
</body>
</html>
`
