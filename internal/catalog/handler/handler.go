package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"biblio/internal/catalog/models"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/httputil"
)

// Service defines the catalog operations the handler exposes.
type Service interface {
	AddItem(ctx context.Context, isbn, title string, authors []string, genre string, year, copiesOwned int) (*models.Item, error)
	GetItem(ctx context.Context, isbn string) (*models.Item, error)
	UpdateItem(ctx context.Context, isbn string, update models.ItemUpdate) (*models.Item, error)
	RemoveItem(ctx context.Context, isbn string) error
	ListItems(ctx context.Context) ([]*models.Item, error)
	Search(ctx context.Context, keyword string) ([]*models.Item, error)
	Filter(ctx context.Context, genre *string, year *int) ([]*models.Item, error)
}

// Handler handles catalog endpoints.
type Handler struct {
	catalog Service
	logger  *slog.Logger
}

func New(catalog Service, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/catalog/items", h.handleAddItem)
	r.Get("/catalog/items", h.handleListItems)
	r.Get("/catalog/items/{isbn}", h.handleGetItem)
	r.Patch("/catalog/items/{isbn}", h.handleUpdateItem)
	r.Delete("/catalog/items/{isbn}", h.handleRemoveItem)
}

type addItemRequest struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Genre       string   `json:"genre"`
	Year        int      `json:"year"`
	CopiesOwned int      `json:"copies_owned"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.catalog.AddItem(r.Context(), req.ISBN, req.Title, req.Authors, req.Genre, req.Year, req.CopiesOwned)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

// handleListItems serves the full catalog, a keyword search (?q=), or a
// genre/year filter, depending on query parameters.
func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var (
		items []*models.Item
		err   error
	)
	switch {
	case query.Get("q") != "":
		items, err = h.catalog.Search(ctx, query.Get("q"))
	case query.Get("genre") != "" || query.Get("year") != "":
		var genre *string
		var year *int
		if g := query.Get("genre"); g != "" {
			genre = &g
		}
		if y := query.Get("year"); y != "" {
			n, convErr := strconv.Atoi(y)
			if convErr != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be an integer"))
				return
			}
			year = &n
		}
		items, err = h.catalog.Filter(ctx, genre, year)
	default:
		items, err = h.catalog.ListItems(ctx)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if items == nil {
		items = []*models.Item{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var update models.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), chi.URLParam(r, "isbn"), update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RemoveItem(r.Context(), chi.URLParam(r, "isbn")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
