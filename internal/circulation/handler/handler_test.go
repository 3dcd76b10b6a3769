package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	catalogmodels "biblio/internal/catalog/models"
	catalogstore "biblio/internal/catalog/store"
	"biblio/internal/circulation/service"
	"biblio/internal/circulation/store"
	patronmodels "biblio/internal/patron/models"
	patronstore "biblio/internal/patron/store"
	"biblio/pkg/domain"
)

// HandlerSuite wires the handler to a real service over in-memory stores, so
// tests exercise the full request path without a database.
type HandlerSuite struct {
	suite.Suite
	items   *catalogstore.InMemory
	patrons *patronstore.InMemory
	router  http.Handler
	today   domain.Date
	ctx     context.Context
}

func (s *HandlerSuite) SetupTest() {
	s.items = catalogstore.NewInMemory()
	s.patrons = patronstore.NewInMemory()
	loans := store.NewInMemory()
	s.today = domain.NewDate(2026, time.June, 1)
	s.ctx = context.Background()

	svc := service.New(s.items, s.patrons, loans, store.NewShardedTx(),
		service.WithClock(func() domain.Date { return s.today }),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) reset() {
	s.SetupTest()
}

func (s *HandlerSuite) seed() {
	item, err := catalogmodels.NewItem("9780000000001", "Dune", []string{"Frank Herbert"}, "sci-fi", 1965, 2)
	s.Require().NoError(err)
	s.Require().NoError(s.items.Create(s.ctx, item))

	patron, err := patronmodels.NewPatron("P1", "Ada")
	s.Require().NoError(err)
	s.Require().NoError(s.patrons.Create(s.ctx, patron))
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) checkout(isbn, libraryID string) string {
	w := s.do(http.MethodPost, "/circulation/checkout", map[string]string{
		"isbn": isbn, "library_id": libraryID,
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	loan := s.decode(w)["loan"].(map[string]any)
	return loan["loan_id"].(string)
}

func (s *HandlerSuite) TestCheckout() {
	s.Run("success", func() {
		s.reset()
		s.seed()
		w := s.do(http.MethodPost, "/circulation/checkout", map[string]string{
			"isbn": "9780000000001", "library_id": "P1",
		})
		s.Require().Equal(http.StatusCreated, w.Code)

		resp := s.decode(w)
		s.Equal(true, resp["success"])
		loan := resp["loan"].(map[string]any)
		s.Equal("9780000000001", loan["isbn"])
		s.Equal("P1", loan["library_id"])
		s.Equal("active", loan["status"])
		s.Equal("2026-06-01", loan["start_date"])
		s.Equal("2026-06-15", loan["due_date"])
		s.Nil(loan["return_date"])
	})

	s.Run("unknown item is 404", func() {
		s.reset()
		s.seed()
		w := s.do(http.MethodPost, "/circulation/checkout", map[string]string{
			"isbn": "missing", "library_id": "P1",
		})
		s.Require().Equal(http.StatusNotFound, w.Code)
		resp := s.decode(w)
		s.Equal("not_found", resp["error"])
		s.Equal("item not found", resp["error_description"])
	})

	s.Run("no available copies is 409", func() {
		s.reset()
		s.seed()
		s.checkout("9780000000001", "P1")
		s.checkout("9780000000001", "P1")

		w := s.do(http.MethodPost, "/circulation/checkout", map[string]string{
			"isbn": "9780000000001", "library_id": "P1",
		})
		s.Require().Equal(http.StatusConflict, w.Code)
		s.Equal("precondition_failed", s.decode(w)["error"])
	})

	s.Run("malformed body is 400", func() {
		s.reset()
		req := httptest.NewRequest(http.MethodPost, "/circulation/checkout", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Require().Equal(http.StatusBadRequest, w.Code)
		s.Equal("bad_request", s.decode(w)["error"])
	})
}

func (s *HandlerSuite) TestReturn() {
	s.Run("on-time return has zero fine", func() {
		s.reset()
		s.seed()
		loanID := s.checkout("9780000000001", "P1")

		w := s.do(http.MethodPost, "/circulation/return", map[string]string{"loan_id": loanID})
		s.Require().Equal(http.StatusOK, w.Code)

		resp := s.decode(w)
		s.Equal(true, resp["success"])
		s.Equal(0.0, resp["fine_amount"])
		loan := resp["loan"].(map[string]any)
		s.Equal("returned", loan["status"])
		s.Equal("2026-06-01", loan["return_date"])
	})

	s.Run("overdue return reports the fine", func() {
		s.reset()
		s.seed()
		loanID := s.checkout("9780000000001", "P1")
		s.today = s.today.AddDays(17) // 3 days past the 14-day period

		w := s.do(http.MethodPost, "/circulation/return", map[string]string{"loan_id": loanID})
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(3*service.DefaultDailyFineRate, s.decode(w)["fine_amount"])
	})

	s.Run("unknown loan is 404", func() {
		s.reset()
		s.seed()
		w := s.do(http.MethodPost, "/circulation/return", map[string]string{"loan_id": "missing"})
		s.Require().Equal(http.StatusNotFound, w.Code)
		s.Equal("active loan not found", s.decode(w)["error_description"])
	})

	s.Run("double return is 404", func() {
		s.reset()
		s.seed()
		loanID := s.checkout("9780000000001", "P1")
		s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/circulation/return", map[string]string{"loan_id": loanID}).Code)

		w := s.do(http.MethodPost, "/circulation/return", map[string]string{"loan_id": loanID})
		s.Require().Equal(http.StatusNotFound, w.Code)
		s.Equal("active loan not found", s.decode(w)["error_description"])
	})
}

func (s *HandlerSuite) TestLoanListings() {
	s.Run("empty collections encode as empty arrays", func() {
		s.reset()
		for _, path := range []string{"/circulation/loans", "/circulation/loans/overdue", "/patrons/P1/loans"} {
			w := s.do(http.MethodGet, path, nil)
			s.Require().Equal(http.StatusOK, w.Code, path)
			resp := s.decode(w)
			s.Equal(0.0, resp["count"], path)
			s.NotNil(resp["loans"], path)
		}
	})

	s.Run("patron loans are scoped to the patron", func() {
		s.reset()
		s.seed()
		other, err := patronmodels.NewPatron("P2", "Grace")
		s.Require().NoError(err)
		s.Require().NoError(s.patrons.Create(s.ctx, other))

		s.checkout("9780000000001", "P1")
		s.checkout("9780000000001", "P2")

		w := s.do(http.MethodGet, "/patrons/P1/loans", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal(1.0, resp["count"])
		loans := resp["loans"].([]any)
		s.Equal("P1", loans[0].(map[string]any)["library_id"])
	})

	s.Run("overdue listing is strict", func() {
		s.reset()
		s.seed()
		s.checkout("9780000000001", "P1")

		s.today = s.today.AddDays(14) // due exactly today
		w := s.do(http.MethodGet, "/circulation/loans/overdue", nil)
		s.Equal(0.0, s.decode(w)["count"])

		s.today = s.today.AddDays(1)
		w = s.do(http.MethodGet, "/circulation/loans/overdue", nil)
		s.Equal(1.0, s.decode(w)["count"])
	})
}
