package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblio/internal/catalog/service"
	"biblio/internal/catalog/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(store.NewInMemory())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w
}

func addDune(t *testing.T, router http.Handler) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/catalog/items", map[string]any{
		"isbn":         "9780000000001",
		"title":        "Dune",
		"authors":      []string{"Frank Herbert"},
		"genre":        "sci-fi",
		"year":         1965,
		"copies_owned": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleAddItem(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	w := doJSON(t, router, http.MethodGet, "/catalog/items/9780000000001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var item map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, "Dune", item["title"])
	assert.Equal(t, 3.0, item["available_copies"])
	assert.Equal(t, true, item["active"])
}

func TestHandleAddItem_Duplicate(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	w := doJSON(t, router, http.MethodPost, "/catalog/items", map[string]any{
		"isbn": "9780000000001", "title": "Dune",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp["error"])
}

func TestHandleGetItem_NotFound(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/catalog/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdateItem(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	w := doJSON(t, router, http.MethodPatch, "/catalog/items/9780000000001", map[string]any{
		"copies_owned": 5, "available_copies": 4,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var item map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, 5.0, item["copies_owned"])
	assert.Equal(t, 4.0, item["available_copies"])
}

func TestHandleUpdateItem_InvalidCounts(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	w := doJSON(t, router, http.MethodPatch, "/catalog/items/9780000000001", map[string]any{
		"available_copies": 9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRemoveItem(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	w := doJSON(t, router, http.MethodDelete, "/catalog/items/9780000000001", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Soft delete: the record is still served, but searches skip it.
	w = doJSON(t, router, http.MethodGet, "/catalog/items/9780000000001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/catalog/items?q=dune", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.0, resp["count"])
}

func TestHandleListItems_QueryModes(t *testing.T) {
	router := newTestRouter(t)
	addDune(t, router)

	for _, tc := range []struct {
		name, path string
		count      float64
	}{
		{"plain list", "/catalog/items", 1},
		{"search hit", "/catalog/items?q=herbert", 1},
		{"search miss", "/catalog/items?q=cookbook", 0},
		{"filter by genre", "/catalog/items?genre=SCI-FI", 1},
		{"filter by genre and year", "/catalog/items?genre=sci-fi&year=1965", 1},
		{"filter year mismatch", "/catalog/items?genre=sci-fi&year=1970", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, tc.path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.count, resp["count"])
			assert.NotNil(t, resp["items"])
		})
	}
}

func TestHandleListItems_BadYear(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/catalog/items?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
