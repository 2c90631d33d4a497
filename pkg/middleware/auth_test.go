package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/session"
)

type fakeSessions struct {
	records map[string]*session.Record
	err     error
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*session.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[id]; ok {
		return r, nil
	}
	return nil, session.ErrNotFound
}

func TestSession(t *testing.T) {
	store := &fakeSessions{records: map[string]*session.Record{
		"sid-1": {ID: "sid-1", UserID: "user-1", Email: "coach@example.com", AccessToken: "at"},
	}}

	tests := []struct {
		name     string
		store    *fakeSessions
		cookie   string
		wantUser string
	}{
		{"valid session", store, "sid-1", "user-1"},
		{"unknown session", store, "sid-2", ""},
		{"no cookie", store, "", ""},
		{"store down", &fakeSessions{err: errors.New("redis: connection refused")}, "sid-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotUser      *auth.User
				gotSessionID string
				called       bool
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser = auth.UserFromContext(r.Context())
				if ac := auth.FromContext(r.Context()); ac != nil {
					gotSessionID = ac.SessionID
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "ts_session", Value: tt.cookie})
			}
			Session(tt.store, "ts_session", observability.NewNopLogger())(next).ServeHTTP(httptest.NewRecorder(), req)

			require.True(t, called, "session middleware never rejects")
			if tt.wantUser == "" {
				assert.Nil(t, gotUser)
				assert.Empty(t, gotSessionID)
				return
			}
			require.NotNil(t, gotUser)
			assert.Equal(t, tt.wantUser, gotUser.ID)
			assert.Equal(t, "coach@example.com", gotUser.Email)
			assert.Equal(t, tt.cookie, gotSessionID)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireAuth(next)

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Not signed in"}`, rec.Body.String())
	})

	t.Run("context without user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
		req = req.WithContext(auth.NewContext(req.Context(), &auth.AuthContext{}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
		req = req.WithContext(auth.NewContext(req.Context(), &auth.AuthContext{User: &auth.User{ID: "u"}}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
