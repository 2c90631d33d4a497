package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantError  string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "All fields are required") }, http.StatusBadRequest, "All fields are required"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "Not signed in") }, http.StatusUnauthorized, "Not signed in"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "Not authorized") }, http.StatusForbidden, "Not authorized"},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "Site not found") }, http.StatusNotFound, "Site not found"},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "That subdomain is already taken") }, http.StatusConflict, "That subdomain is already taken"},
		{"internal", func(w http.ResponseWriter) {
			WriteInternalError(w, httptest.NewRequest(http.MethodGet, "/api/sites", nil), errors.New("pq: connection reset"))
		}, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteOK(w, ""))
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, WriteNotOK(w, http.StatusBadRequest, "Missing tokens"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Missing tokens"}`, w.Body.String())
}

func TestWriteHTMLAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTMLAttachment(w, "<html></html>", "index.html")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="index.html"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "<html></html>", w.Body.String())
}
