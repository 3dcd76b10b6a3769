package models

import (
	"strings"

	dErrors "biblio/pkg/domain-errors"
)

// DefaultMaxLimit is the loan limit applied when a patron registers without
// an explicit one.
const DefaultMaxLimit = 5

// Patron is a registered borrower.
//
// Invariants:
//   - LibraryID is non-empty and immutable after construction
//   - FinesOwed >= 0
//   - len(CurrentLoans) <= MaxLimit is enforced at checkout time only;
//     lowering MaxLimit later does not evict existing loans
//   - CurrentLoans preserves checkout order; History preserves return order
type Patron struct {
	LibraryID    string   `json:"library_id" db:"library_id"`
	Name         string   `json:"name" db:"name"`
	Email        string   `json:"email" db:"email"`
	Phone        string   `json:"phone" db:"phone"`
	Address      string   `json:"address" db:"address"`
	CurrentLoans []string `json:"current_loans" db:"current_loans"`
	History      []string `json:"history" db:"history"`
	FinesOwed    float64  `json:"fines_owed" db:"fines_owed"`
	MaxLimit     int      `json:"max_limit" db:"max_limit"`
}

// NewPatron validates invariants and applies registration defaults.
func NewPatron(libraryID, name string) (*Patron, error) {
	if strings.TrimSpace(libraryID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "library id is required")
	}
	return &Patron{
		LibraryID:    libraryID,
		Name:         name,
		CurrentLoans: []string{},
		History:      []string{},
		FinesOwed:    0,
		MaxLimit:     DefaultMaxLimit,
	}, nil
}

// CanBorrow checks the loan limit. The message carries the numeric limit so
// patrons learn why they were refused.
func (p *Patron) CanBorrow() error {
	if len(p.CurrentLoans) >= p.MaxLimit {
		return dErrors.Newf(dErrors.CodePreconditionFailed,
			"patron has reached maximum loan limit (%d)", p.MaxLimit)
	}
	return nil
}

// ApplyCheckout records a new active loan. Call CanBorrow first.
func (p *Patron) ApplyCheckout(loanID string) {
	p.CurrentLoans = append(p.CurrentLoans, loanID)
}

// ApplyReturn closes out a loan: the id moves from the active set to history
// and any fine is added to the balance. A loan id absent from the active set
// is tolerated (inconsistent data should not block a return).
func (p *Patron) ApplyReturn(loanID string, fine float64) {
	for idx, id := range p.CurrentLoans {
		if id == loanID {
			p.CurrentLoans = append(p.CurrentLoans[:idx], p.CurrentLoans[idx+1:]...)
			break
		}
	}
	p.History = append(p.History, loanID)
	if fine > 0 {
		p.FinesOwed += fine
	}
}

// Clone returns a deep copy so store reads never alias store-owned state.
func (p *Patron) Clone() *Patron {
	cp := *p
	cp.CurrentLoans = append([]string(nil), p.CurrentLoans...)
	cp.History = append([]string(nil), p.History...)
	return &cp
}

// ContactUpdate carries a partial contact-info update; nil fields are left
// untouched. Only contact fields may change through this path.
type ContactUpdate struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// ApplyContactUpdate mutates the patron's contact fields.
func (p *Patron) ApplyContactUpdate(u ContactUpdate) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
}
