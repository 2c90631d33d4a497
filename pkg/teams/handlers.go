package teams

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/httputil"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/observability"
)

// Handlers serves the team management API
type Handlers struct {
	store       *Store
	admin       identity.Admin
	redirectURL string
	logger      *observability.Logger
}

// NewHandlers creates team handlers. admin may be nil, in which case invites
// are recorded without sending an email. Invite emails link back to
// baseURL + "/auth/cb".
func NewHandlers(store *Store, admin identity.Admin, baseURL string, logger *observability.Logger) *Handlers {
	return &Handlers{
		store:       store,
		admin:       admin,
		redirectURL: strings.TrimRight(baseURL, "/") + "/auth/cb",
		logger:      logger,
	}
}

// RegisterRoutes registers team routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/teams", h.ListTeams).Methods("GET")
	router.HandleFunc("/api/teams", h.CreateTeam).Methods("POST")
	router.HandleFunc("/api/teams/{id}/invites", h.CreateInvite).Methods("POST")
}

// InviteResponse is the body returned after an invite is processed
type InviteResponse struct {
	OK      bool    `json:"ok"`
	Message string  `json:"message"`
	Invite  *Invite `json:"invite,omitempty"`
}

// ListTeams lists the teams of the signed-in user
func (h *Handlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return
	}

	teams, err := h.store.ListTeams(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list teams")
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, teams)
}

// CreateTeam creates a team owned by the signed-in user
func (h *Handlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return
	}

	var req CreateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httputil.WriteBadRequest(w, "Team name is required")
		return
	}

	team, err := h.store.CreateTeam(r.Context(), name, user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create team")
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, team)
}

// CreateInvite records a pending invite and asks the identity provider to
// email the invitee. Only the team owner may invite.
func (h *Handlers) CreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return
	}

	teamID, ok := httputil.RequirePathParam(w, r, "id")
	if !ok {
		return
	}

	team, err := h.store.GetTeam(ctx, teamID)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, "Team not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	if team.Owner != user.ID {
		httputil.WriteForbidden(w, "Not authorized")
		return
	}

	var req CreateInviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		httputil.WriteBadRequest(w, "Email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid email address")
		return
	}
	email = strings.ToLower(addr.Address)
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "Invalid role")
		return
	}

	logger := h.logger.WithFields(map[string]interface{}{
		"team_id": team.ID,
		"email":   email,
	})

	// Record failure is non-fatal: the invitee just isn't auto-joined.
	invite, err := h.store.CreateInvite(ctx, team.ID, email, req.Role, user.ID)
	if err != nil {
		logger.WithError(err).Warn("Could not create invite record")
		invite = nil
	}

	if h.admin != nil {
		if mailErr := h.admin.InviteUserByEmail(ctx, email, h.redirectURL); mailErr != nil {
			logger.WithError(mailErr).Warn("Identity provider invite failed")
			if invite == nil {
				httputil.WriteErrorMessage(w, http.StatusBadGateway, fmt.Sprintf("Could not send invite: %v", mailErr))
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, InviteResponse{
				OK:      true,
				Message: fmt.Sprintf("Invite recorded for %s. They will join the team at their next sign-in.", email),
				Invite:  invite,
			})
			return
		}
	}

	logger.Info("Invite sent")
	httputil.WriteJSON(w, http.StatusCreated, InviteResponse{
		OK:      true,
		Message: fmt.Sprintf("Invite sent to %s.", email),
		Invite:  invite,
	})
}
