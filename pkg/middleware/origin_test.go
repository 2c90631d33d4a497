package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrigins_Allowed(t *testing.T) {
	o := NewOrigins("https://Teams.example.com/", "https://admin.example.com", "not a url")

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://teams.example.com", true},
		{"https://admin.example.com", true},
		{"http://teams.example.com", false},
		{"https://evil.example.net", false},
		{"null", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, o.Allowed(tt.origin))
		})
	}

	o.Set(nil)
	assert.False(t, o.Allowed("https://admin.example.com"))
	assert.True(t, o.Allowed("https://teams.example.com"), "own origin survives reloads")
}

func TestOrigins_Handler(t *testing.T) {
	handler := NewOrigins("https://teams.example.com").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{"same origin post", http.MethodPost, "https://teams.example.com", http.StatusNoContent},
		{"foreign post", http.MethodPost, "https://evil.example.net", http.StatusForbidden},
		{"foreign delete", http.MethodDelete, "https://evil.example.net", http.StatusForbidden},
		{"foreign get", http.MethodGet, "https://evil.example.net", http.StatusNoContent},
		{"no origin", http.MethodPut, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/sites", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
