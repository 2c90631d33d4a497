package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/httputil"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

// Provider is the part of the identity provider the session endpoints use
type Provider interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handlers serves the establish-session and sign-out endpoints
type Handlers struct {
	provider Provider
	store    Store
	cookie   CookieConfig
	logger   *observability.Logger
}

// NewHandlers creates session handlers
func NewHandlers(provider Provider, store Store, cookie CookieConfig, logger *observability.Logger) *Handlers {
	if cookie.Name == "" {
		cookie.Name = "ts_session"
	}
	return &Handlers{
		provider: provider,
		store:    store,
		cookie:   cookie,
		logger:   logger,
	}
}

// RegisterRoutes registers session routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	h.RegisterEstablishRoute(router)
	h.RegisterSignOutRoute(router)
}

// RegisterEstablishRoute registers POST /auth/session. The server's own
// synchronizer calls it for every sign-in, so it must not share a per-IP
// limit with browser traffic.
func (h *Handlers) RegisterEstablishRoute(router *mux.Router) {
	router.HandleFunc("/auth/session", h.Establish).Methods("POST")
}

// RegisterSignOutRoute registers /auth/signout
func (h *Handlers) RegisterSignOutRoute(router *mux.Router) {
	router.HandleFunc("/auth/signout", h.SignOut).Methods("GET", "POST")
}

// EstablishRequest is the body of POST /auth/session
type EstablishRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Establish adopts provider tokens into a server-side session and sets the
// session cookie.
func (h *Handlers) Establish(w http.ResponseWriter, r *http.Request) {
	var req EstablishRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteNotOK(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		httputil.WriteNotOK(w, http.StatusBadRequest, "Missing tokens")
		return
	}

	session, err := h.provider.SetSession(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.logger.WithError(err).Warn("Provider rejected session tokens")
		httputil.WriteNotOK(w, http.StatusBadRequest, providerMessage(err))
		return
	}

	record, err := h.store.Create(r.Context(), session)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store session")
		httputil.WriteNotOK(w, http.StatusInternalServerError, "Failed to store session")
		return
	}

	http.SetCookie(w, h.sessionCookie(record.ID))
	httputil.WriteOK(w, "")
}

// SignOut deletes the server session, revokes the provider session on a
// best-effort basis, clears the cookie and redirects home.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if ac := auth.FromContext(ctx); ac != nil && ac.SessionID != "" {
		h.end(ctx, ac.SessionID, ac.AccessToken)
	} else if c, err := r.Cookie(h.cookie.Name); err == nil && c.Value != "" {
		record, err := h.store.Get(ctx, c.Value)
		switch {
		case err == nil:
			h.end(ctx, record.ID, record.AccessToken)
		case errors.Is(err, ErrNotFound):
		default:
			h.logger.WithError(err).Warn("Failed to load session for sign-out")
			h.end(ctx, c.Value, "")
		}
	}

	http.SetCookie(w, h.expiredCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// end revokes the provider session when a token is known and deletes ours
func (h *Handlers) end(ctx context.Context, id, accessToken string) {
	if accessToken != "" {
		if err := h.provider.SignOut(ctx, accessToken); err != nil {
			h.logger.WithError(err).Debug("Provider sign-out failed")
		}
	}
	if err := h.store.Delete(ctx, id); err != nil {
		h.logger.WithError(err).Warn("Failed to delete session")
	}
}

func (h *Handlers) sessionCookie(id string) *http.Cookie {
	c := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookie.TTL > 0 {
		c.MaxAge = int(h.cookie.TTL.Seconds())
	}
	return c
}

func (h *Handlers) expiredCookie() *http.Cookie {
	c := h.sessionCookie("")
	c.MaxAge = -1
	return c
}

// providerMessage returns the provider's own wording when there is one
func providerMessage(err error) string {
	var perr *identity.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}
