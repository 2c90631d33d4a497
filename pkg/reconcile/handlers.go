package reconcile

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/httputil"
)

// Handlers exposes the reconciliation steps as standalone endpoints
type Handlers struct {
	reconciler *Reconciler
}

// NewHandlers creates reconciliation handlers
func NewHandlers(reconciler *Reconciler) *Handlers {
	return &Handlers{reconciler: reconciler}
}

// RegisterRoutes registers reconciliation routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/accept-invites", h.AcceptInvites).Methods("POST")
	router.HandleFunc("/api/bootstrap", h.Bootstrap).Methods("POST")
}

// BootstrapResponse is the body of POST /api/bootstrap
type BootstrapResponse struct {
	OK bool `json:"ok"`
	*BootstrapResult
}

// AcceptInvites accepts every pending invite of the signed-in user
func (h *Handlers) AcceptInvites(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil || user.Email == "" {
		httputil.WriteNotOK(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	accepted, errs := h.reconciler.AcceptInvites(r.Context(), *user)
	if accepted == 0 && len(errs) > 0 {
		httputil.WriteNotOK(w, http.StatusBadRequest, errs[0].Error())
		return
	}
	if accepted == 0 {
		httputil.WriteOK(w, "No invites")
		return
	}
	httputil.WriteOK(w, fmt.Sprintf("Accepted %d invite(s)", accepted))
}

// Bootstrap creates the starter workspace of the signed-in user if needed
func (h *Handlers) Bootstrap(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httputil.WriteNotOK(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	result, err := h.reconciler.Bootstrap(r.Context(), *user)
	if err != nil {
		httputil.WriteNotOK(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BootstrapResponse{OK: true, BootstrapResult: result})
}
