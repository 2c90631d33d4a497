package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/teamsites/pkg/auth"
)

// ErrInvalidGrant is wrapped by errors for rejected codes, tokens and OTP hashes
var ErrInvalidGrant = errors.New("invalid grant")

// Session is an authenticated provider session
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// User returns the account the session belongs to
func (s *Session) User() auth.User {
	return auth.User{ID: s.UserID, Email: s.Email}
}

// OTPType is the verification type carried by token-hash links
type OTPType string

const (
	OTPMagicLink   OTPType = "magiclink"
	OTPRecovery    OTPType = "recovery"
	OTPInvite      OTPType = "invite"
	OTPEmailChange OTPType = "email_change"
)

// Supported reports whether t can be verified
func (t OTPType) Supported() bool {
	switch t {
	case OTPMagicLink, OTPRecovery, OTPInvite, OTPEmailChange:
		return true
	}
	return false
}

// Provider turns each callback credential into a Session
type Provider interface {
	// SetSession adopts tokens delivered in a URL fragment
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	// ExchangeCode redeems a single-use PKCE authorization code
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	// VerifyOTP redeems a token-hash link
	VerifyOTP(ctx context.Context, tokenHash string, typ OTPType) (*Session, error)
	// SignOut revokes the refresh tokens behind accessToken
	SignOut(ctx context.Context, accessToken string) error
}

// Admin sends invitation emails with the service key
type Admin interface {
	InviteUserByEmail(ctx context.Context, email, redirectTo string) error
}

// ProviderError is a non-2xx answer from the identity provider
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Message)
}

// Unwrap maps client errors to ErrInvalidGrant
func (e *ProviderError) Unwrap() error {
	if e.Status >= 400 && e.Status < 500 {
		return ErrInvalidGrant
	}
	return nil
}
