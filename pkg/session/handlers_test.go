package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

type fakeProvider struct {
	err        error
	signedOut  []string
	signOutErr error
}

func (f *fakeProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       "user-1",
		Email:        "coach@example.com",
	}, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return f.signOutErr
}

func newTestHandlers(t *testing.T, provider *fakeProvider) (*mux.Router, *RedisStore) {
	_, client := newRedis(t)
	store := NewRedisStore(client, time.Hour)
	h := NewHandlers(provider, store, CookieConfig{Name: "ts_session", Secure: true, TTL: time.Hour}, observability.NewNopLogger())
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router, store
}

func TestEstablish(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		providerErr error
		wantStatus  int
		wantBody    string
	}{
		{"missing refresh", `{"access_token":"a"}`, nil, http.StatusBadRequest, `{"ok":false,"error":"Missing tokens"}`},
		{"missing both", `{}`, nil, http.StatusBadRequest, `{"ok":false,"error":"Missing tokens"}`},
		{"not json", `nope`, nil, http.StatusBadRequest, `{"ok":false,"error":"Invalid request body"}`},
		{"provider rejects", `{"access_token":"a","refresh_token":"r"}`,
			&identity.ProviderError{Status: 401, Message: "Invalid Refresh Token"},
			http.StatusBadRequest, `{"ok":false,"error":"Invalid Refresh Token"}`},
		{"established", `{"access_token":"a","refresh_token":"r"}`, nil, http.StatusOK, `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := newTestHandlers(t, &fakeProvider{err: tt.providerErr})

			req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())

			cookies := rec.Result().Cookies()
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, cookies)
				return
			}

			require.Len(t, cookies, 1)
			c := cookies[0]
			assert.Equal(t, "ts_session", c.Name)
			assert.True(t, c.HttpOnly)
			assert.True(t, c.Secure)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Equal(t, "/", c.Path)
			assert.Equal(t, 3600, c.MaxAge)

			record, err := store.Get(context.Background(), c.Value)
			require.NoError(t, err)
			assert.Equal(t, "user-1", record.UserID)
			assert.Equal(t, "r", record.RefreshToken)
		})
	}
}

func TestSignOut(t *testing.T) {
	provider := &fakeProvider{signOutErr: assert.AnError}
	router, store := newTestHandlers(t, provider)

	record, err := store.Create(context.Background(), &identity.Session{UserID: "u", AccessToken: "tok", RefreshToken: "r"})
	require.NoError(t, err)

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/auth/signout", nil)
			req.AddCookie(&http.Cookie{Name: "ts_session", Value: record.ID})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, "ts_session", cookies[0].Name)
			assert.Equal(t, -1, cookies[0].MaxAge)

			_, err := store.Get(context.Background(), record.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}

	// The provider is only called while the session still exists.
	assert.Equal(t, []string{"tok"}, provider.signedOut)
}

func TestSignOut_NoCookie(t *testing.T) {
	provider := &fakeProvider{}
	router, _ := newTestHandlers(t, provider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/signout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, provider.signedOut)
}

func TestSignOut_UsesResolvedSession(t *testing.T) {
	provider := &fakeProvider{}
	router, store := newTestHandlers(t, provider)

	record, err := store.Create(context.Background(), &identity.Session{UserID: "u", AccessToken: "tok-2"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req = req.WithContext(auth.NewContext(req.Context(), &auth.AuthContext{
		User:        record.User(),
		SessionID:   record.ID,
		AccessToken: record.AccessToken,
	}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"tok-2"}, provider.signedOut)
	_, err = store.Get(context.Background(), record.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
