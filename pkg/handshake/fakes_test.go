package handshake

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/reconcile"
)

// fakeProvider behaves like a provider with single-use codes
type fakeProvider struct {
	mu        sync.Mutex
	usedCodes map[string]bool
	verifiers []string
	calls     atomic.Int32
	err       error
	// release, when set, blocks every call until it is closed
	release chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{usedCodes: map[string]bool{}}
}

func (f *fakeProvider) enter(ctx context.Context) error {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return f.err
}

func session(token string) *identity.Session {
	return &identity.Session{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		UserID:       "user-1",
		Email:        "coach@example.com",
	}
}

func (f *fakeProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	s := session(accessToken)
	s.RefreshToken = refreshToken
	return s, nil
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code, verifier string) (*identity.Session, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifiers = append(f.verifiers, verifier)
	if f.usedCodes[code] {
		return nil, &identity.ProviderError{Status: 400, Message: "invalid flow state, no valid flow state found"}
	}
	f.usedCodes[code] = true
	return session("code-" + code), nil
}

func (f *fakeProvider) VerifyOTP(ctx context.Context, tokenHash string, typ identity.OTPType) (*identity.Session, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	return session("otp-" + tokenHash), nil
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

type fakeSync struct {
	err     error
	cookies []*http.Cookie
	calls   atomic.Int32
}

func (f *fakeSync) Sync(ctx context.Context, s *identity.Session) ([]*http.Cookie, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, &SessionSyncDegraded{Err: f.err}
	}
	return f.cookies, nil
}

type fakeReconciler struct {
	mu    sync.Mutex
	users []auth.User
}

func (f *fakeReconciler) Reconcile(ctx context.Context, user auth.User) *reconcile.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	return &reconcile.Report{}
}
