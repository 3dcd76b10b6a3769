package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	catalogmodels "biblio/internal/catalog/models"
	"biblio/internal/circulation/models"
	"biblio/internal/circulation/store"
	patronmodels "biblio/internal/patron/models"
	"biblio/internal/platform/metrics"
	"biblio/pkg/domain"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/sentinel"
)

// DefaultLoanPeriodDays is the checkout period when none is configured.
const DefaultLoanPeriodDays = 14

// DefaultDailyFineRate is the fine accrued per overdue day, in currency
// units. Fines accrue at return time only; payment is out of scope.
const DefaultDailyFineRate = 5.0

// ItemStore is the slice of the catalog the engine needs: it only ever reads
// and writes an item's copy counts.
type ItemStore interface {
	FindByISBN(ctx context.Context, isbn string) (*catalogmodels.Item, error)
	Update(ctx context.Context, item *catalogmodels.Item) error
}

// PatronStore is the slice of the patron registry the engine needs.
type PatronStore interface {
	FindByID(ctx context.Context, libraryID string) (*patronmodels.Patron, error)
	Update(ctx context.Context, patron *patronmodels.Patron) error
}

// LoanStore owns loan records. Implementations must preserve insertion order
// in ListByPatron and ListAll.
type LoanStore interface {
	Append(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, loanID string) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	ListByPatron(ctx context.Context, libraryID string) ([]*models.Loan, error)
	ListAll(ctx context.Context) ([]*models.Loan, error)
}

// Service is the circulation engine. It mutates items, patrons, and loans
// together under business rules, inside the transactional boundary provided
// by tx, and derives overdue state and fines from calendar-date comparison.
type Service struct {
	items   ItemStore
	patrons PatronStore
	loans   LoanStore
	tx      store.Tx

	logger  *slog.Logger
	metrics *metrics.Metrics
	today   func() domain.Date

	loanPeriodDays int
	dailyFineRate  float64
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock fixes the source of "today" for tests.
func WithClock(today func() domain.Date) Option {
	return func(s *Service) { s.today = today }
}

func WithLoanPeriod(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.loanPeriodDays = days
		}
	}
}

func WithFineRate(rate float64) Option {
	return func(s *Service) {
		if rate >= 0 {
			s.dailyFineRate = rate
		}
	}
}

// New constructs the circulation Service.
func New(items ItemStore, patrons PatronStore, loans LoanStore, tx store.Tx, opts ...Option) *Service {
	s := &Service{
		items:          items,
		patrons:        patrons,
		loans:          loans,
		tx:             tx,
		logger:         slog.Default(),
		today:          domain.Today,
		loanPeriodDays: DefaultLoanPeriodDays,
		dailyFineRate:  DefaultDailyFineRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout lends one copy of an item to a patron. Preconditions are checked
// in order and the first failure aborts with nothing mutated: the item must
// exist, have a copy available, the patron must exist and be under their
// loan limit. On success the loan record, the item's available count, and
// the patron's active set all change inside one transaction.
func (s *Service) Checkout(ctx context.Context, isbn, libraryID string) (*models.Loan, error) {
	if isbn == "" || libraryID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "isbn and library id are required")
	}

	var created *models.Loan
	err := s.tx.RunInTx(ctx, []string{itemKey(isbn), patronKey(libraryID)}, func(ctx context.Context) error {
		item, err := s.items.FindByISBN(ctx, isbn)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.countCheckoutFailure("item_not_found")
				return dErrors.New(dErrors.CodeNotFound, "item not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load item")
		}
		if err := item.CanLend(); err != nil {
			s.countCheckoutFailure("no_copies")
			return err
		}

		patron, err := s.patrons.FindByID(ctx, libraryID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.countCheckoutFailure("patron_not_found")
				return dErrors.New(dErrors.CodeNotFound, "patron not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patron")
		}
		if err := patron.CanBorrow(); err != nil {
			s.countCheckoutFailure("loan_limit")
			return err
		}

		loan := models.NewLoan(uuid.NewString(), isbn, libraryID, s.today(), s.loanPeriodDays)

		if err := s.loans.Append(ctx, loan); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record loan")
		}
		item.ApplyLend()
		if err := s.items.Update(ctx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update item")
		}
		patron.ApplyCheckout(loan.ID)
		if err := s.patrons.Update(ctx, patron); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update patron")
		}

		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCheckouts()
	}
	s.logger.InfoContext(ctx, "item checked out",
		"loan_id", created.ID,
		"isbn", isbn,
		"library_id", libraryID,
		"due_date", created.DueDate.String(),
	)
	return created, nil
}

// Return closes an active loan: the loan flips to returned with today's
// date, the item regains a copy, the loan id moves from the patron's active
// set to history, and any overdue fine is added to the patron's balance.
// Fines compare calendar dates only, at the configured daily rate.
//
// A missing loan and an already-returned loan report the same not-found
// error; logs distinguish the two causes. A loan whose item or patron has
// been deleted fails as an integrity violation.
func (s *Service) Return(ctx context.Context, loanID string) (*models.ReturnReceipt, error) {
	if loanID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "loan id is required")
	}

	// Peek at the loan to learn which item and patron keys to serialize on;
	// everything is re-verified under the lock.
	peek, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "return rejected: no such loan", "loan_id", loanID)
			return nil, dErrors.New(dErrors.CodeNotFound, "active loan not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan")
	}

	var receipt *models.ReturnReceipt
	err = s.tx.RunInTx(ctx, []string{itemKey(peek.ISBN), patronKey(peek.LibraryID)}, func(ctx context.Context) error {
		loan, err := s.loans.FindByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "active loan not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan")
		}
		if !loan.IsActive() {
			s.logger.InfoContext(ctx, "return rejected: loan already returned", "loan_id", loanID)
			return dErrors.New(dErrors.CodeNotFound, "active loan not found")
		}

		item, itemErr := s.items.FindByISBN(ctx, loan.ISBN)
		patron, patronErr := s.patrons.FindByID(ctx, loan.LibraryID)
		if errors.Is(itemErr, sentinel.ErrNotFound) || errors.Is(patronErr, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "return rejected: loan references missing records",
				"loan_id", loanID,
				"isbn", loan.ISBN,
				"library_id", loan.LibraryID,
			)
			return dErrors.New(dErrors.CodeIntegrityViolation,
				"loan references an item or patron that no longer exists")
		}
		if itemErr != nil {
			return dErrors.Wrap(itemErr, dErrors.CodeInternal, "failed to load item")
		}
		if patronErr != nil {
			return dErrors.Wrap(patronErr, dErrors.CodeInternal, "failed to load patron")
		}

		today := s.today()
		fine := loan.Fine(today, s.dailyFineRate)

		loan.ApplyReturn(today)
		if err := s.loans.Update(ctx, loan); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update loan")
		}
		if clamped := item.ApplyReturn(); clamped {
			s.logger.WarnContext(ctx, "available copies clamped at copies owned",
				"isbn", item.ISBN,
				"copies_owned", item.CopiesOwned,
			)
		}
		if err := s.items.Update(ctx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update item")
		}
		patron.ApplyReturn(loan.ID, fine)
		if err := s.patrons.Update(ctx, patron); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update patron")
		}

		receipt = &models.ReturnReceipt{Loan: loan, FineAmount: fine}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementReturns()
		s.metrics.AddFinesAccrued(receipt.FineAmount)
	}
	s.logger.InfoContext(ctx, "item returned",
		"loan_id", loanID,
		"fine_amount", receipt.FineAmount,
	)
	return receipt, nil
}

// PatronLoans lists a patron's loans, any status, in collection order.
func (s *Service) PatronLoans(ctx context.Context, libraryID string) ([]*models.Loan, error) {
	loans, err := s.loans.ListByPatron(ctx, libraryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list loans")
	}
	return loans, nil
}

// OverdueLoans lists active loans whose due date is strictly before today.
func (s *Service) OverdueLoans(ctx context.Context) ([]*models.Loan, error) {
	all, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list loans")
	}
	today := s.today()
	var overdue []*models.Loan
	for _, loan := range all {
		if loan.IsOverdue(today) {
			overdue = append(overdue, loan)
		}
	}
	return overdue, nil
}

// AllLoans lists every loan in collection order.
func (s *Service) AllLoans(ctx context.Context) ([]*models.Loan, error) {
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list loans")
	}
	return loans, nil
}

func (s *Service) countCheckoutFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementCheckoutFailures(reason)
	}
}

// Lock keys are namespaced so an item and a patron sharing an identifier
// still map to distinct keys.
func itemKey(isbn string) string        { return "item:" + isbn }
func patronKey(libraryID string) string { return "patron:" + libraryID }
