package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"biblio/internal/patron/models"
	"biblio/internal/patron/service"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/httputil"
)

// Service defines the patron operations the handler exposes.
type Service interface {
	Register(ctx context.Context, params service.RegisterParams) (*models.Patron, error)
	Get(ctx context.Context, libraryID string) (*models.Patron, error)
	UpdateContact(ctx context.Context, libraryID string, update models.ContactUpdate) (*models.Patron, error)
	List(ctx context.Context) ([]*models.Patron, error)
}

// Handler handles patron endpoints.
type Handler struct {
	patrons Service
	logger  *slog.Logger
}

func New(patrons Service, logger *slog.Logger) *Handler {
	return &Handler{patrons: patrons, logger: logger}
}

// Register registers the patron routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/patrons", h.handleRegister)
	r.Get("/patrons", h.handleList)
	r.Get("/patrons/{libraryID}", h.handleGet)
	r.Patch("/patrons/{libraryID}/contact", h.handleUpdateContact)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params service.RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	patron, err := h.patrons.Register(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, patron)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	patron, err := h.patrons.Get(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patron)
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var update models.ContactUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	patron, err := h.patrons.UpdateContact(r.Context(), chi.URLParam(r, "libraryID"), update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patron)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	patrons, err := h.patrons.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if patrons == nil {
		patrons = []*models.Patron{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"patrons": patrons, "count": len(patrons)})
}
