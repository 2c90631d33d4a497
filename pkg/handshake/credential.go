package handshake

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/platinummonkey/teamsites/pkg/identity"
)

// Kind names the RawCredential variant
type Kind string

const (
	KindFragment  Kind = "fragment"
	KindOAuthCode Kind = "oauth_code"
	KindOTP       Kind = "otp"
	KindError     Kind = "error"
)

// MissingParams is the reason given when a callback has no credential
const MissingParams = "Missing auth params"

// RawCredential is the single credential found in a callback URL. Only the
// fields of its Kind are set.
type RawCredential struct {
	Kind Kind

	// fragment
	AccessToken  string
	RefreshToken string

	// oauth_code
	Code string
	// Verifier is the PKCE verifier from the login cookie. Extract never
	// sets it; the handshake attaches it before resolving.
	Verifier string

	// otp
	TokenHash string
	OTPType   identity.OTPType

	// error
	Message string
}

// Failure returns the error an error-kind credential stands for, or nil
func (c RawCredential) Failure() error {
	if c.Kind != KindError {
		return nil
	}
	return &MalformedCallback{Reason: c.Message}
}

// Extract parses a callback URL. Fragment tokens win over anything in the
// query; a fragment with only one of the two tokens is ignored.
func Extract(u *url.URL) RawCredential {
	if frag := u.EscapedFragment(); strings.Contains(frag, "access_token=") {
		if values, err := url.ParseQuery(frag); err == nil {
			access, refresh := values.Get("access_token"), values.Get("refresh_token")
			if access != "" && refresh != "" {
				return RawCredential{Kind: KindFragment, AccessToken: access, RefreshToken: refresh}
			}
		}
	}

	q := u.Query()
	if desc := q.Get("error_description"); desc != "" {
		return RawCredential{Kind: KindError, Message: desc}
	}
	if code := q.Get("code"); code != "" {
		return RawCredential{Kind: KindOAuthCode, Code: code}
	}
	if hash, typ := q.Get("token_hash"), q.Get("type"); hash != "" && typ != "" {
		otpType := identity.OTPType(typ)
		if !otpType.Supported() {
			return RawCredential{Kind: KindError, Message: fmt.Sprintf("Unsupported verification type %q", typ)}
		}
		return RawCredential{Kind: KindOTP, TokenHash: hash, OTPType: otpType}
	}

	return RawCredential{Kind: KindError, Message: MissingParams}
}
