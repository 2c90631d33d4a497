package handshake

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/teamsites/pkg/httputil"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

const (
	// PKCECookie holds the PKCE verifier between login and callback
	PKCECookie = "ts_pkce"
	pkceTTL    = 10 * time.Minute
	// CallbackPath is where the identity provider sends the browser back
	CallbackPath = "/auth/cb"
)

// LoginProvider starts sign-ins with the identity provider
type LoginProvider interface {
	AuthCodeURL(provider, state, verifier string) string
	SendMagicLink(ctx context.Context, email, redirectTo string) error
}

// Handlers serves the login and callback endpoints
type Handlers struct {
	controller *Controller
	login      LoginProvider
	baseURL    string
	secure     bool
	logger     *observability.Logger
}

// NewHandlers creates handshake handlers. secure marks the PKCE cookie
// Secure.
func NewHandlers(controller *Controller, login LoginProvider, baseURL string, secure bool, logger *observability.Logger) *Handlers {
	return &Handlers{
		controller: controller,
		login:      login,
		baseURL:    strings.TrimRight(baseURL, "/"),
		secure:     secure,
		logger:     logger,
	}
}

// RegisterRoutes registers handshake routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods("GET")
	router.HandleFunc("/auth/magic-link", h.MagicLink).Methods("POST")
	router.HandleFunc(CallbackPath, h.Callback).Methods("GET")
	router.HandleFunc(CallbackPath, h.CallbackForm).Methods("POST")
}

// Login starts an OAuth/PKCE sign-in with the upstream provider named by
// the provider query parameter.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	verifier := oauth2.GenerateVerifier()
	http.SetCookie(w, h.pkceCookie(verifier, int(pkceTTL.Seconds())))

	target := h.login.AuthCodeURL(r.URL.Query().Get("provider"), uuid.NewString(), verifier)
	http.Redirect(w, r, target, http.StatusFound)
}

// MagicLinkRequest is the body of POST /auth/magic-link
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLink emails a sign-in link that returns to the callback
func (h *Handlers) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteNotOK(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		httputil.WriteNotOK(w, http.StatusBadRequest, "Email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		httputil.WriteNotOK(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if err := h.login.SendMagicLink(r.Context(), email, h.baseURL+CallbackPath); err != nil {
		h.logger.WithError(err).Warn("Failed to send magic link")
		var perr *identity.ProviderError
		if errors.As(err, &perr) && perr.Status < 500 {
			httputil.WriteNotOK(w, http.StatusBadRequest, perr.Message)
			return
		}
		httputil.WriteNotOK(w, http.StatusBadGateway, "Could not send the sign-in link")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.OKResponse{
		OK:      true,
		Message: "Check your email for the sign-in link.",
	})
}

// Callback serves the shim page. The fragment never reaches the server and
// a fragment session outranks a query code, so no credential is resolved
// until the shim posts the query and the fragment back together.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	httputil.WriteHTML(w, http.StatusOK, renderShim(r.URL.RawQuery))
}

// CallbackForm rebuilds the callback URL from the query and fragment posted
// by the shim page and runs the handshake.
func (h *Handlers) CallbackForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.complete(w, r, &url.URL{Path: CallbackPath})
		return
	}
	h.complete(w, r, callbackURL(r.PostForm.Get("query"), r.PostForm.Get("fragment")))
}

func callbackURL(query, fragment string) *url.URL {
	raw := CallbackPath
	if query = strings.TrimPrefix(query, "?"); query != "" {
		raw += "?" + query
	}
	if fragment = strings.TrimPrefix(fragment, "#"); fragment != "" {
		raw += "#" + fragment
	}
	callback, err := url.Parse(raw)
	if err != nil {
		return &url.URL{Path: CallbackPath}
	}
	return callback
}

func (h *Handlers) complete(w http.ResponseWriter, r *http.Request, callback *url.URL) {
	var verifier string
	if c, err := r.Cookie(PKCECookie); err == nil {
		verifier = c.Value
	}

	outcome := h.controller.Begin(callback, verifier).Run(r.Context())

	for _, c := range outcome.Cookies {
		http.SetCookie(w, c)
	}
	if verifier != "" {
		http.SetCookie(w, h.pkceCookie("", -1))
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, outcome.Target, http.StatusSeeOther)
}

func (h *Handlers) pkceCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     PKCECookie,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
