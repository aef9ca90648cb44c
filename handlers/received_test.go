package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songdrop/services"
	"songdrop/types"
)

func newReceivedRouter(t *testing.T) (*gin.Engine, services.Inbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inbox, err := services.NewInbox(t.TempDir(), 128)
	require.NoError(t, err)

	h := NewReceivedHandler(inbox)
	r := gin.New()
	r.GET("/api/received", h.ListReceived)
	r.POST("/api/received/:id/select", h.SelectReceived)
	r.GET("/api/received/:id/stream", h.StreamReceived)
	r.DELETE("/api/received/:id", h.RemoveReceived)
	return r, inbox
}

func TestListReceived(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	_, err := inbox.Add("a.mp3", bytes.NewReader([]byte{0xFF, 0xFB}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/received", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "a.mp3")
}

func TestSelectReceived(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	rec, _ := inbox.Add("pick.mp3", bytes.NewReader([]byte{0xFF, 0xFB}))

	req := httptest.NewRequest(http.MethodPost, "/api/received/"+rec.ID+"/select", strings.NewReader(`{"selected":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, inbox.Selected(), 1)

	// Unknown id is a 404, not a silent no-op.
	req = httptest.NewRequest(http.MethodPost, "/api/received/missing/select", strings.NewReader(`{"selected":true}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveReceived(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	rec, _ := inbox.Add("bye.mp3", bytes.NewReader([]byte{0xFF, 0xFB}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/received/"+rec.ID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, inbox.List())
}

func TestStreamReceivedWholeFile(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	content := append([]byte{0xFF, 0xFB}, []byte("0123456789")...)
	rec, _ := inbox.Add("play.mp3", bytes.NewReader(content))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/received/"+rec.ID+"/stream", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, content, w.Body.Bytes())
}

func TestStreamReceivedRange(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	content := append([]byte{0xFF, 0xFB}, []byte("0123456789")...)
	rec, _ := inbox.Add("seek.mp3", bytes.NewReader(content))

	req := httptest.NewRequest(http.MethodGet, "/api/received/"+rec.ID+"/stream", nil)
	req.Header.Set("Range", "bytes=2-5")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 2-5/12", w.Header().Get("Content-Range"))
	assert.Equal(t, []byte("0123"), w.Body.Bytes())
}

func TestStreamReceivedGoneAfterRelease(t *testing.T) {
	r, inbox := newReceivedRouter(t)

	rec, _ := inbox.Add("done.mp3", bytes.NewReader([]byte{0xFF, 0xFB}))
	inbox.SetStatus(rec.ID, types.StatusImported, "")
	require.NoError(t, inbox.DeleteStaged(rec.ID))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/received/"+rec.ID+"/stream", nil))

	assert.Equal(t, http.StatusGone, w.Code)
}
