package reconcile

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/sites"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

func serve(r *Reconciler, path string, user *auth.User) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	NewHandlers(r).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	if user != nil {
		req = req.WithContext(auth.NewContext(req.Context(), &auth.AuthContext{User: user}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAcceptInvitesHandler(t *testing.T) {
	user := &auth.User{ID: "u", Email: "u@example.com"}
	tests := []struct {
		name       string
		teams      *fakeTeams
		user       *auth.User
		wantStatus int
		wantBody   string
	}{
		{"not signed in", &fakeTeams{}, nil, http.StatusUnauthorized, "Not signed in"},
		{"no email", &fakeTeams{}, &auth.User{ID: "u"}, http.StatusUnauthorized, "Not signed in"},
		{"nothing pending", &fakeTeams{}, user, http.StatusOK, "No invites"},
		{"accepted", &fakeTeams{invites: []*teams.Invite{{ID: "a"}, {ID: "b"}}}, user, http.StatusOK, "Accepted 2 invite(s)"},
		{"all failed", &fakeTeams{invites: []*teams.Invite{{ID: "a"}}, failInvite: "a"}, user, http.StatusBadRequest, "deadlock detected"},
		{"list failed", &fakeTeams{listErr: errors.New("connection reset")}, user, http.StatusBadRequest, "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(tt.teams, &fakeWorkspaces{}, sites.NewReserved(), observability.NewNopLogger(), nil)
			rec := serve(r, "/api/accept-invites", tt.user)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus == http.StatusOK, body["ok"])
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, body["message"])
			} else {
				assert.Contains(t, body["error"], tt.wantBody)
			}
		})
	}
}

func TestBootstrapHandler(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		r := NewReconciler(&fakeTeams{}, &fakeWorkspaces{}, sites.NewReserved(), observability.NewNopLogger(), nil)
		rec := serve(r, "/api/bootstrap", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Not authenticated")
	})

	t.Run("created", func(t *testing.T) {
		r := NewReconciler(&fakeTeams{}, &fakeWorkspaces{}, sites.NewReserved(), observability.NewNopLogger(), nil)
		rec := serve(r, "/api/bootstrap", &auth.User{ID: "u", Email: "robotics@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			OK      bool                   `json:"ok"`
			Created *sites.WorkspaceResult `json:"created"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.OK)
		require.NotNil(t, body.Created)
		assert.Equal(t, "robotics", body.Created.Subdomain)
	})

	t.Run("skipped", func(t *testing.T) {
		r := NewReconciler(&fakeTeams{owns: true}, &fakeWorkspaces{}, sites.NewReserved(), observability.NewNopLogger(), nil)
		rec := serve(r, "/api/bootstrap", &auth.User{ID: "u", Email: "robotics@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"skipped":true,"reason":"Owner already has a team"}`, rec.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		r := NewReconciler(&fakeTeams{}, &fakeWorkspaces{err: errors.New("disk full")}, sites.NewReserved(), observability.NewNopLogger(), nil)
		rec := serve(r, "/api/bootstrap", &auth.User{ID: "u", Email: "robotics@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "disk full")
	})
}
