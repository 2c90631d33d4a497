package handshake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/identity"
)

func TestEndpointSynchronizer_RelaysCookies(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		http.SetCookie(w, &http.Cookie{Name: "ts_session", Value: "sid", Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s := NewEndpointSynchronizer(server.URL+"/auth/session", time.Second)
	cookies, err := s.Sync(context.Background(), &identity.Session{AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"access_token": "at", "refresh_token": "rt"}, got)
	require.Len(t, cookies, 1)
	assert.Equal(t, "ts_session", cookies[0].Name)
	assert.Equal(t, "sid", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestEndpointSynchronizer_Degraded(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"ok":false,"error":"Missing tokens"}`))
			},
			wantErr: "returned 400: Missing tokens",
		},
		{
			name: "not acknowledged",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ok":false}`))
			},
			wantErr: "did not acknowledge",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>gateway</html>`))
			},
			wantErr: "did not acknowledge",
		},
		{
			name: "too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				w.Write([]byte(`{"ok":true}`))
			},
			wantErr: "establish request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			s := NewEndpointSynchronizer(server.URL, 100*time.Millisecond)
			cookies, err := s.Sync(context.Background(), &identity.Session{AccessToken: "at", RefreshToken: "rt"})
			assert.Nil(t, cookies)

			var degraded *SessionSyncDegraded
			require.ErrorAs(t, err, &degraded)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
