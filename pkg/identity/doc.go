// Package identity is the client for the hosted identity provider.
//
// # Overview
//
// The provider is an OAuth2 server with OIDC-style signed access tokens. A
// Client turns each of the three callback credentials into a Session:
//
//   - fragment tokens: SetSession verifies the access token with go-oidc and
//     refreshes it through x/oauth2 when it has expired
//   - PKCE authorization codes: ExchangeCode with the verifier created at login
//   - token-hash links: VerifyOTP posts to the provider's /verify endpoint
//
// Rejections wrap ErrInvalidGrant. No call is retried.
//
//	client := identity.NewClient(ctx, identity.Config{URL: cfg.Identity.URL, APIKey: cfg.Identity.APIKey})
//	session, err := client.ExchangeCode(ctx, code, verifier)
//
// The HTTP client carries the configured timeout and an otelhttp transport.
package identity
