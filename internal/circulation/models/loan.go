package models

import (
	"biblio/pkg/domain"
	dErrors "biblio/pkg/domain-errors"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan records one item lent to one patron for a bounded period.
//
// Invariants:
//   - ID, ISBN, and LibraryID are immutable after construction
//   - the only transition is active -> returned; returned is terminal
//   - ReturnDate is nil exactly while Status is active
type Loan struct {
	ID         string       `json:"loan_id" db:"loan_id"`
	ISBN       string       `json:"isbn" db:"isbn"`
	LibraryID  string       `json:"library_id" db:"library_id"`
	StartDate  domain.Date  `json:"start_date" db:"start_date"`
	DueDate    domain.Date  `json:"due_date" db:"due_date"`
	ReturnDate *domain.Date `json:"return_date" db:"return_date"`
	Status     LoanStatus   `json:"status" db:"status"`
}

// NewLoan opens a loan starting today with the given period.
func NewLoan(id, isbn, libraryID string, today domain.Date, periodDays int) *Loan {
	return &Loan{
		ID:        id,
		ISBN:      isbn,
		LibraryID: libraryID,
		StartDate: today,
		DueDate:   today.AddDays(periodDays),
		Status:    LoanStatusActive,
	}
}

func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// IsOverdue reports whether an active loan's due date is strictly before
// today. A loan due exactly today is not overdue; returned loans never are.
func (l *Loan) IsOverdue(today domain.Date) bool {
	return l.IsActive() && l.DueDate.Before(today)
}

// OverdueDays is the whole number of calendar days past due, zero when the
// loan is due today or later.
func (l *Loan) OverdueDays(today domain.Date) int {
	days := today.DaysSince(l.DueDate)
	if days < 0 {
		return 0
	}
	return days
}

// Fine is the penalty owed if the loan were returned today.
func (l *Loan) Fine(today domain.Date, dailyRate float64) float64 {
	return float64(l.OverdueDays(today)) * dailyRate
}

// CanReturn checks the state transition.
func (l *Loan) CanReturn() error {
	if !l.IsActive() {
		return dErrors.New(dErrors.CodePreconditionFailed, "loan is not active")
	}
	return nil
}

// ApplyReturn closes the loan. Call CanReturn first.
func (l *Loan) ApplyReturn(today domain.Date) {
	l.ReturnDate = &today
	l.Status = LoanStatusReturned
}

// Clone returns a deep copy so store reads never alias store-owned state.
func (l *Loan) Clone() *Loan {
	cp := *l
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		cp.ReturnDate = &rd
	}
	return &cp
}

// ReturnReceipt is the result of a successful return.
type ReturnReceipt struct {
	Loan       *Loan   `json:"loan"`
	FineAmount float64 `json:"fine_amount"`
}
