package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songdrop/services"
)

func newUploadRouter(t *testing.T) (*gin.Engine, services.Inbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inbox, err := services.NewInbox(t.TempDir(), 128)
	require.NoError(t, err)

	h := NewUploadHandler(inbox, nil)
	r := gin.New()
	r.GET("/", h.UploadPage)
	r.POST("/upload", h.Upload)
	return r, inbox
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadMultipart(t *testing.T) {
	r, inbox := newUploadRouter(t)

	body, contentType := multipartBody(t, "My Song.mp3", []byte{0xFF, 0xFB, 0x90, 0x00})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "audio/mpeg", resp["mime"])

	files := inbox.List()
	require.Len(t, files, 1)
	assert.Equal(t, "My Song.mp3", files[0].DisplayName)
	assert.Equal(t, int64(4), files[0].SizeBytes)
}

func TestUploadRawBody(t *testing.T) {
	r, inbox := newUploadRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader([]byte("RIFF0000WAVEfmt ")))
	req.Header.Set("X-Filename", "take.wav")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	files := inbox.List()
	require.Len(t, files, 1)
	assert.Equal(t, "take.wav", files[0].DisplayName)
}

func TestUploadMissingBody(t *testing.T) {
	r, inbox := newUploadRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, inbox.List(), "rejected requests must not create records")
}

// TestUploadSanitizesTraversal: a hostile filename cannot escape the
// staging directory or survive with separators intact.
func TestUploadSanitizesTraversal(t *testing.T) {
	r, inbox := newUploadRouter(t)

	body, contentType := multipartBody(t, "../../../../etc/evil.mp3", []byte{0xFF, 0xFB})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	files := inbox.List()
	require.Len(t, files, 1)
	assert.Equal(t, "evil.mp3", files[0].DisplayName)
}

// TestUploadReplaceOnRetry: the same name within a session replaces rather
// than duplicates, even over HTTP.
func TestUploadReplaceOnRetry(t *testing.T) {
	r, inbox := newUploadRouter(t)

	for i := 0; i < 3; i++ {
		body, contentType := multipartBody(t, "retry.mp3", []byte{0xFF, 0xFB, byte(i)})
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Len(t, inbox.List(), 1)
}

func TestUploadPage(t *testing.T) {
	r, _ := newUploadRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/upload"`)
}
