package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babylog-backend/internal/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

// Binding failures are rejected before the store is ever touched, so a nil
// store is fine for these cases.
func TestEntriesCreate_RejectsInvalidBody(t *testing.T) {
	h := NewEntriesHandler(nil)
	router := gin.New()
	router.POST("/api/entries", h.Create)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown entry type", body: `{"entry_type": "sleeping", "occurred_at": "2025-02-25 09:30"}`},
		{name: "missing occurred_at", body: `{"entry_type": "feeding"}`},
		{name: "occurred_at too short", body: `{"entry_type": "weight", "occurred_at": "25.02"}`},
		{name: "not json", body: `entry_type=feeding`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid request", resp.Error)
		})
	}
}

func TestEntriesUpdate_RejectsInvalidBody(t *testing.T) {
	h := NewEntriesHandler(nil)
	router := gin.New()
	router.PATCH("/api/entries/:id", h.Update)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown entry type", body: `{"entry_type": "sleeping"}`},
		{name: "unknown confidence", body: `{"confidence": "certain"}`},
		{name: "occurred_at too short", body: `{"occurred_at": "25.02"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/api/entries/1", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestEntriesUpdate_RejectsInvalidID(t *testing.T) {
	h := NewEntriesHandler(nil)
	router := gin.New()
	router.PATCH("/api/entries/:id", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/entries/abc", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid id", resp.Error)
}

func TestUploadsCreate_RejectsMissingFile(t *testing.T) {
	h := NewUploadsHandler(nil, nil)
	router := gin.New()
	router.POST("/api/uploads", h.Create)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file field here"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "file missing", resp.Error)
}

func TestUploadsCreate_RejectsOversizedFile(t *testing.T) {
	h := NewUploadsHandler(nil, nil)
	router := gin.New()
	router.POST("/api/uploads", h.Create)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "huge.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), maxUploadSize+1))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadsReprocess_RejectsInvalidID(t *testing.T) {
	h := NewUploadsHandler(nil, nil)
	router := gin.New()
	router.POST("/api/uploads/:id/reprocess", h.Reprocess)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/abc/reprocess", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
