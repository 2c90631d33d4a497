package sites

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/content"
	"github.com/platinummonkey/teamsites/pkg/httputil"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

// Handlers serves the site management API and the public pages
type Handlers struct {
	store     *Store
	teams     *teams.Store
	pages     *Pages
	publisher *Publisher
	reserved  *Reserved
	logger    *observability.Logger
}

// NewHandlers creates site handlers. publisher may be nil.
func NewHandlers(store *Store, teamStore *teams.Store, pages *Pages, publisher *Publisher, reserved *Reserved, logger *observability.Logger) *Handlers {
	return &Handlers{
		store:     store,
		teams:     teamStore,
		pages:     pages,
		publisher: publisher,
		reserved:  reserved,
		logger:    logger,
	}
}

// RegisterRoutes registers the authenticated site API
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/sites", h.ListSites).Methods("GET")
	router.HandleFunc("/api/sites", h.CreateSite).Methods("POST")
	router.HandleFunc("/api/sites/{id}/content", h.GetContent).Methods("GET")
	router.HandleFunc("/api/sites/{id}/content", h.UpdateContent).Methods("PUT")
	router.HandleFunc("/api/sites/{id}", h.DeleteSite).Methods("DELETE")
	router.HandleFunc("/api/sites/{id}/export", h.ExportSite).Methods("GET")
	router.HandleFunc("/api/sites/{id}/publish", h.PublishSite).Methods("POST")
}

// RegisterPublicRoutes registers the unauthenticated public page routes
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/site/{subdomain}", h.ServeBySubdomain).Methods("GET", "HEAD")
	router.HandleFunc("/sites/{id}", h.ServeByID).Methods("GET", "HEAD")
}

// ListSites lists sites of the signed-in user's teams
func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return
	}

	sites, err := h.store.ListSitesForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sites")
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sites)
}

// CreateSite creates a site for one of the user's teams and seeds its content
func (h *Handlers) CreateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return
	}

	var req CreateSiteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	teamID := strings.TrimSpace(req.TeamID)
	if name == "" || strings.TrimSpace(req.Subdomain) == "" || teamID == "" {
		httputil.WriteBadRequest(w, "All fields are required")
		return
	}

	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if err := ValidateSubdomain(subdomain, h.reserved); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.teams.MemberRole(ctx, teamID, user.ID); err != nil {
		if errors.Is(err, teams.ErrNotFound) {
			httputil.WriteForbidden(w, "You do not have access to the selected team")
			return
		}
		httputil.WriteInternalError(w, r, err)
		return
	}

	site, err := h.store.CreateSite(ctx, teamID, name, subdomain, content.DefaultJSON(name))
	if errors.Is(err, ErrSubdomainTaken) {
		httputil.WriteConflict(w, "That subdomain is already taken")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to create site")
		httputil.WriteInternalError(w, r, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"site_id":   site.ID,
		"subdomain": site.Subdomain,
	}).Info("Site created")
	httputil.WriteCreated(w, site)
}

// GetContent returns the stored content document of a site for editing
func (h *Handlers) GetContent(w http.ResponseWriter, r *http.Request) {
	site, ok := h.authorize(w, r, false)
	if !ok {
		return
	}

	data, err := h.store.GetContent(r.Context(), site.ID)
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Content load error")
		return
	}
	if data == nil {
		data = content.DefaultJSON(site.Name)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UpdateContent replaces a site's content document. Any team member may edit.
func (h *Handlers) UpdateContent(w http.ResponseWriter, r *http.Request) {
	site, ok := h.authorize(w, r, false)
	if !ok {
		return
	}

	var raw interface{}
	if !httputil.ParseJSONOrError(w, r, &raw) {
		return
	}
	if _, ok := raw.(map[string]interface{}); !ok {
		httputil.WriteBadRequest(w, "Content must be a JSON object")
		return
	}
	if err := CheckLinks(raw); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	data, err := json.Marshal(raw)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.store.PutContent(r.Context(), site.ID, data); err != nil {
		h.logger.WithError(err).WithField("site_id", site.ID).Error("Failed to save content")
		httputil.WriteInternalError(w, r, err)
		return
	}

	h.pages.Cache().Invalidate(site)
	httputil.WriteOK(w, "Saved")
}

// DeleteSite deletes a site. Only the owner of the site's team may delete.
func (h *Handlers) DeleteSite(w http.ResponseWriter, r *http.Request) {
	site, ok := h.authorize(w, r, true)
	if !ok {
		return
	}

	if err := h.store.DeleteSite(r.Context(), site.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "Site not found")
			return
		}
		httputil.WriteInternalError(w, r, err)
		return
	}
	h.pages.Cache().Invalidate(site)

	if h.publisher.Enabled() {
		if err := h.publisher.Unpublish(r.Context(), site); err != nil {
			h.logger.WithError(err).WithField("site_id", site.ID).Warn("Failed to remove published page")
		}
	}

	httputil.WriteOK(w, "Deleted")
}

// ExportSite returns the rendered page as an index.html download
func (h *Handlers) ExportSite(w http.ResponseWriter, r *http.Request) {
	site, ok := h.authorize(w, r, false)
	if !ok {
		return
	}

	html, err := h.pages.Build(r.Context(), site)
	if err != nil {
		h.logger.WithError(err).WithField("site_id", site.ID).Error("Export failed")
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Content load error")
		return
	}
	httputil.WriteHTMLAttachment(w, html, "index.html")
}

// PublishSite uploads the rendered page to object storage
func (h *Handlers) PublishSite(w http.ResponseWriter, r *http.Request) {
	site, ok := h.authorize(w, r, false)
	if !ok {
		return
	}
	if !h.publisher.Enabled() {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "Publishing is not configured")
		return
	}

	pub, err := h.publisher.Publish(r.Context(), site)
	if err != nil {
		h.logger.WithError(err).WithField("site_id", site.ID).Error("Publish failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "Publish failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pub)
}

// ServeBySubdomain serves the public page of a site by subdomain
func (h *Handlers) ServeBySubdomain(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, func() (string, error) {
		return h.pages.BySubdomain(r.Context(), httputil.PathParam(r, "subdomain"))
	})
}

// ServeByID serves the public page of a site by ID
func (h *Handlers) ServeByID(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, func() (string, error) {
		return h.pages.ByID(r.Context(), httputil.PathParam(r, "id"))
	})
}

func (h *Handlers) servePage(w http.ResponseWriter, r *http.Request, load func() (string, error)) {
	html, err := load()
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, "Site not found")
		return
	}
	var contentErr *ContentError
	if errors.As(err, &contentErr) {
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Content load error")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to serve site")
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, html)
}

// authorize loads the site named by the {id} path variable and checks that
// the signed-in user is a member of its team, or its owner when ownerOnly.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request, ownerOnly bool) (*Site, bool) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		httputil.WriteUnauthorized(w, "Not signed in")
		return nil, false
	}

	id, ok := httputil.RequirePathParam(w, r, "id")
	if !ok {
		return nil, false
	}

	site, err := h.store.GetSite(ctx, id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, "Site not found")
		return nil, false
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return nil, false
	}

	if ownerOnly {
		team, err := h.teams.GetTeam(ctx, site.TeamID)
		if errors.Is(err, teams.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Team not found")
			return nil, false
		}
		if err != nil {
			httputil.WriteInternalError(w, r, err)
			return nil, false
		}
		if team.Owner != user.ID {
			httputil.WriteForbidden(w, "Not authorized")
			return nil, false
		}
		return site, true
	}

	if _, err := h.teams.MemberRole(ctx, site.TeamID, user.ID); err != nil {
		if errors.Is(err, teams.ErrNotFound) {
			httputil.WriteForbidden(w, "Not authorized")
			return nil, false
		}
		httputil.WriteInternalError(w, r, err)
		return nil, false
	}
	return site, true
}
