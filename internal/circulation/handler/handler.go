package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"biblio/internal/circulation/models"
	"biblio/internal/platform/middleware"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/httputil"
)

// Service defines the circulation operations the handler exposes.
type Service interface {
	Checkout(ctx context.Context, isbn, libraryID string) (*models.Loan, error)
	Return(ctx context.Context, loanID string) (*models.ReturnReceipt, error)
	PatronLoans(ctx context.Context, libraryID string) ([]*models.Loan, error)
	OverdueLoans(ctx context.Context) ([]*models.Loan, error)
	AllLoans(ctx context.Context) ([]*models.Loan, error)
}

// Handler handles circulation endpoints.
type Handler struct {
	circulation Service
	logger      *slog.Logger
}

// New creates a circulation Handler.
func New(circulation Service, logger *slog.Logger) *Handler {
	return &Handler{circulation: circulation, logger: logger}
}

// Register registers the circulation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/circulation/checkout", h.handleCheckout)
	r.Post("/circulation/return", h.handleReturn)
	r.Get("/circulation/loans", h.handleAllLoans)
	r.Get("/circulation/loans/overdue", h.handleOverdueLoans)
	r.Get("/patrons/{libraryID}/loans", h.handlePatronLoans)
}

type checkoutRequest struct {
	ISBN      string `json:"isbn"`
	LibraryID string `json:"library_id"`
}

type checkoutResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Loan    *models.Loan `json:"loan"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	loan, err := h.circulation.Checkout(ctx, req.ISBN, req.LibraryID)
	if err != nil {
		h.logger.WarnContext(ctx, "checkout rejected",
			"request_id", middleware.GetRequestID(ctx),
			"isbn", req.ISBN,
			"library_id", req.LibraryID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, checkoutResponse{
		Success: true,
		Message: "item checked out successfully",
		Loan:    loan,
	})
}

type returnRequest struct {
	LoanID string `json:"loan_id"`
}

type returnResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	FineAmount float64      `json:"fine_amount"`
	Loan       *models.Loan `json:"loan"`
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	receipt, err := h.circulation.Return(ctx, req.LoanID)
	if err != nil {
		h.logger.WarnContext(ctx, "return rejected",
			"request_id", middleware.GetRequestID(ctx),
			"loan_id", req.LoanID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, returnResponse{
		Success:    true,
		Message:    "item returned successfully",
		FineAmount: receipt.FineAmount,
		Loan:       receipt.Loan,
	})
}

func (h *Handler) handleAllLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.circulation.AllLoans(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loansResponse(loans))
}

func (h *Handler) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.circulation.OverdueLoans(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loansResponse(loans))
}

func (h *Handler) handlePatronLoans(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")
	loans, err := h.circulation.PatronLoans(r.Context(), libraryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loansResponse(loans))
}

// loansResponse keeps list payloads uniform and never encodes null for an
// empty collection.
func loansResponse(loans []*models.Loan) map[string]any {
	if loans == nil {
		loans = []*models.Loan{}
	}
	return map[string]any{"loans": loans, "count": len(loans)}
}
