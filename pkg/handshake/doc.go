// Package handshake turns an identity-provider callback into a signed-in
// user.
//
// A callback visit carries exactly one credential: fragment tokens from an
// email magic link, an OAuth/PKCE authorization code, or an OTP token hash.
// The Controller runs every visit through the same state machine:
//
//	Start → Extracting → Resolving → Syncing → Reconciling → Done("/dashboard")
//	                 ↘           ↘
//	                  Failed(reason) → Done("/login?error=<reason>")
//
// Extract is a pure parse of the callback URL. The Resolver redeems the
// credential with the identity provider; authorization codes are also
// claimed in a ReplayGuard so a replayed callback fails locally. The
// EndpointSynchronizer posts the tokens to the establish-session endpoint
// and relays its cookies. Sync failures and reconciliation failures are
// logged and never block the handshake.
//
// Each Handshake runs at most once. Run latches before the first step, so a
// repeated or concurrent Run returns the first run's Outcome:
//
//	hs := controller.Begin(callbackURL, verifier)
//	outcome := hs.Run(r.Context())
//	http.Redirect(w, r, outcome.Target, http.StatusSeeOther)
//
// Steps run on context.WithoutCancel(ctx): once started, provider calls
// finish or fail on their own transport timeouts even if the browser goes
// away.
package handshake
