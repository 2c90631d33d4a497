package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/teamsites/pkg/observability"
)

// Config holds identity provider endpoints and keys
type Config struct {
	URL         string // auth base URL; /authorize, /token, /verify, /otp, /logout and /invite live under it
	APIKey      string
	AdminKey    string
	ClientID    string
	Issuer      string
	JWKSURL     string
	RedirectURL string
	Timeout     time.Duration

	// KeySet overrides the remote JWKS, mainly for tests
	KeySet oidc.KeySet
}

// Client talks to a hosted OAuth2/OIDC identity provider
type Client struct {
	cfg      Config
	http     *http.Client
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ Provider = (*Client)(nil)
var _ Admin = (*Client)(nil)

// NewClient creates a client. ctx scopes background JWKS refreshes.
func NewClient(ctx context.Context, cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Issuer == "" {
		cfg.Issuer = cfg.URL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = cfg.URL + "/.well-known/jwks.json"
	}

	httpClient := observability.InstrumentedClient(cfg.Timeout)

	keySet := cfg.KeySet
	if keySet == nil {
		keySet = oidc.NewRemoteKeySet(oidc.ClientContext(ctx, httpClient), cfg.JWKSURL)
	}

	return &Client{
		cfg:  cfg,
		http: httpClient,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.URL + "/authorize",
				TokenURL:  cfg.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURL,
		},
		// Access tokens carry the provider audience, not our client id.
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

// AuthCodeURL returns the provider authorize URL for a PKCE login through
// the named upstream provider (for example "google").
func (c *Client) AuthCodeURL(provider, state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if provider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("provider", provider))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// ExchangeCode redeems an authorization code with its PKCE verifier
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	opts := []oauth2.AuthCodeOption{}
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", mapOAuthError(err))
	}
	return c.sessionFromToken(ctx, tok)
}

// SetSession verifies an access token and refreshes it when it has expired
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, fmt.Errorf("access and refresh tokens are required: %w", ErrInvalidGrant)
	}

	session, err := c.verify(ctx, accessToken)
	if err == nil {
		session.RefreshToken = refreshToken
		return session, nil
	}

	var expired *oidc.TokenExpiredError
	if !errors.As(err, &expired) {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}

	stale := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       expired.Expiry,
	}
	tok, err := c.oauth.TokenSource(c.oauthContext(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", mapOAuthError(err))
	}
	return c.sessionFromToken(ctx, tok)
}

// VerifyOTP redeems a token-hash link
func (c *Client) VerifyOTP(ctx context.Context, tokenHash string, typ OTPType) (*Session, error) {
	var tok tokenResponse
	body := map[string]string{"token_hash": tokenHash, "type": string(typ)}
	if err := c.post(ctx, "/verify", nil, c.cfg.APIKey, body, &tok); err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}

	session, err := c.verify(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}
	session.RefreshToken = tok.RefreshToken
	if tok.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return session, nil
}

// SendMagicLink emails a sign-in link that returns to redirectTo
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	query := url.Values{"redirect_to": {redirectTo}}
	body := map[string]interface{}{"email": email, "create_user": true}
	if err := c.post(ctx, "/otp", query, c.cfg.APIKey, body, nil); err != nil {
		return fmt.Errorf("failed to send magic link: %w", err)
	}
	return nil
}

// SignOut revokes the session behind accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.post(ctx, "/logout", nil, accessToken, nil, nil); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// InviteUserByEmail sends an invitation email using the admin key
func (c *Client) InviteUserByEmail(ctx context.Context, email, redirectTo string) error {
	if c.cfg.AdminKey == "" {
		return errors.New("identity admin key is not configured")
	}
	query := url.Values{"redirect_to": {redirectTo}}
	body := map[string]string{"email": email}
	if err := c.post(ctx, "/invite", query, c.cfg.AdminKey, body, nil); err != nil {
		return fmt.Errorf("failed to invite user: %w", err)
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type claims struct {
	Email string `json:"email"`
}

func (c *Client) verify(ctx context.Context, raw string) (*Session, error) {
	token, err := c.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	var cl claims
	if err := token.Claims(&cl); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if token.Subject == "" {
		return nil, fmt.Errorf("missing subject in access token: %w", ErrInvalidGrant)
	}

	return &Session{
		AccessToken: raw,
		UserID:      token.Subject,
		Email:       strings.ToLower(cl.Email),
		ExpiresAt:   token.Expiry,
	}, nil
}

func (c *Client) sessionFromToken(ctx context.Context, tok *oauth2.Token) (*Session, error) {
	session, err := c.verify(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}

	// Fall back to the id_token for the email when the access token omits it.
	if session.Email == "" {
		if rawID, ok := tok.Extra("id_token").(string); ok && rawID != "" {
			if idSession, err := c.verify(ctx, rawID); err == nil {
				session.Email = idSession.Email
			}
		}
	}

	session.RefreshToken = tok.RefreshToken
	if !tok.Expiry.IsZero() {
		session.ExpiresAt = tok.Expiry
	}
	return session, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, bearer string, body, out interface{}) error {
	endpoint := c.cfg.URL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Status: resp.StatusCode, Message: readProviderMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readProviderMessage extracts the human readable part of an error body
func readProviderMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 64*1024))

	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, msg := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if msg != "" {
				return msg
			}
		}
	}

	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}
	return "unknown error"
}

func mapOAuthError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		msg := retrieve.ErrorDescription
		if msg == "" {
			msg = retrieve.ErrorCode
		}
		status := http.StatusBadRequest
		if retrieve.Response != nil {
			status = retrieve.Response.StatusCode
		}
		return &ProviderError{Status: status, Message: msg}
	}
	return err
}
