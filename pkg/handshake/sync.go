package handshake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

// Synchronizer establishes the server-side session for a provider session
type Synchronizer interface {
	Sync(ctx context.Context, session *identity.Session) ([]*http.Cookie, error)
}

// EndpointSynchronizer posts tokens to the establish-session endpoint and
// returns the cookies it sets
type EndpointSynchronizer struct {
	endpoint string
	client   *http.Client
}

var _ Synchronizer = (*EndpointSynchronizer)(nil)

// NewEndpointSynchronizer creates a synchronizer whose calls give up after
// timeout
func NewEndpointSynchronizer(endpoint string, timeout time.Duration) *EndpointSynchronizer {
	return &EndpointSynchronizer{
		endpoint: endpoint,
		client:   observability.InstrumentedClient(timeout),
	}
}

type syncResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Sync implements Synchronizer. Every failure is a *SessionSyncDegraded.
func (s *EndpointSynchronizer) Sync(ctx context.Context, session *identity.Session) ([]*http.Cookie, error) {
	cookies, err := s.sync(ctx, session)
	if err != nil {
		return nil, &SessionSyncDegraded{Err: err}
	}
	return cookies, nil
}

func (s *EndpointSynchronizer) sync(ctx context.Context, session *identity.Session) ([]*http.Cookie, error) {
	body, err := json.Marshal(map[string]string{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tokens: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("establish request failed: %w", err)
	}
	defer resp.Body.Close()

	var out syncResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("establish endpoint returned %d: %s", resp.StatusCode, out.Error)
	}
	if !out.OK {
		return nil, fmt.Errorf("establish endpoint did not acknowledge: %s", out.Error)
	}
	return resp.Cookies(), nil
}
