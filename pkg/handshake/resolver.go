package handshake

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

// CredentialResolver redeems a credential for a provider session
type CredentialResolver interface {
	Resolve(ctx context.Context, cred RawCredential) (*identity.Session, error)
}

// Resolver redeems credentials with an explicitly constructed identity
// provider. Nothing is retried: every credential is single-use.
type Resolver struct {
	provider identity.Provider
	guard    ReplayGuard
	logger   *observability.Logger
}

var _ CredentialResolver = (*Resolver)(nil)

// NewResolver creates a resolver. guard may be nil, leaving replay
// detection to the provider alone.
func NewResolver(provider identity.Provider, guard ReplayGuard, logger *observability.Logger) *Resolver {
	return &Resolver{provider: provider, guard: guard, logger: logger}
}

// Resolve returns the session for cred. Provider failures come back as
// *AuthExchangeFailed; an error-kind credential as *MalformedCallback.
func (r *Resolver) Resolve(ctx context.Context, cred RawCredential) (*identity.Session, error) {
	var (
		session *identity.Session
		err     error
	)

	switch cred.Kind {
	case KindFragment:
		session, err = r.provider.SetSession(ctx, cred.AccessToken, cred.RefreshToken)
	case KindOAuthCode:
		if err := r.claim(ctx, cred.Code); err != nil {
			return nil, err
		}
		session, err = r.provider.ExchangeCode(ctx, cred.Code, cred.Verifier)
	case KindOTP:
		session, err = r.provider.VerifyOTP(ctx, cred.TokenHash, cred.OTPType)
	case KindError:
		return nil, cred.Failure()
	default:
		return nil, &MalformedCallback{Reason: fmt.Sprintf("unknown credential kind %q", cred.Kind)}
	}

	if err != nil {
		return nil, &AuthExchangeFailed{Message: exchangeMessage(err), Err: err}
	}
	return session, nil
}

// claim fails a code this instance (or the shared guard) has already seen.
// Guard outages are logged and the provider stays the authority.
func (r *Resolver) claim(ctx context.Context, code string) error {
	if r.guard == nil {
		return nil
	}
	first, err := r.guard.Claim(ctx, code)
	if err != nil {
		r.logger.WithError(err).Warn("Replay guard unavailable")
		return nil
	}
	if !first {
		return &AuthExchangeFailed{Message: ErrCodeReplayed.Error(), Err: ErrCodeReplayed}
	}
	return nil
}

func exchangeMessage(err error) string {
	var perr *identity.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}
