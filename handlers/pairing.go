package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"songdrop/services"
)

// PairingHandler advertises the listener's URL so another device can find
// this one: as JSON for apps, as a QR PNG for humans pointing a camera.
type PairingHandler struct {
	listener services.Listener
}

// NewPairingHandler creates a new pairing handler
func NewPairingHandler(listener services.Listener) *PairingHandler {
	return &PairingHandler{
		listener: listener,
	}
}

// Info returns the advertised upload URL.
func (h *PairingHandler) Info(c *gin.Context) {
	url := h.listener.URL()
	if url == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "upload listener is not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url": url,
	})
}

// QR renders the upload URL as a PNG QR code. The optional ?size= query
// sets the edge length in pixels.
func (h *PairingHandler) QR(c *gin.Context) {
	url := h.listener.URL()
	if url == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "upload listener is not running",
		})
		return
	}

	size := 256
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 2048 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "size must be between 64 and 2048",
			})
			return
		}
		size = n
	}

	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "could not render QR code",
			"details": err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
