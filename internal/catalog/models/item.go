package models

import (
	"strings"

	dErrors "biblio/pkg/domain-errors"
)

// Item is a catalog entry for a lendable work, tracked by copy counts rather
// than individual physical units.
//
// Invariants:
//   - ISBN is non-empty and immutable after construction
//   - 0 <= AvailableCopies <= CopiesOwned
//   - Removal is a soft delete (Active=false); items are never destroyed
type Item struct {
	ISBN            string   `json:"isbn" db:"isbn"`
	Title           string   `json:"title" db:"title"`
	Authors         []string `json:"authors" db:"authors"`
	Genre           string   `json:"genre" db:"genre"`
	Year            int      `json:"year" db:"year"`
	CopiesOwned     int      `json:"copies_owned" db:"copies_owned"`
	AvailableCopies int      `json:"available_copies" db:"available_copies"`
	Active          bool     `json:"active" db:"active"`
}

// NewItem validates invariants and applies defaults: a new item starts with
// all owned copies available and is active.
func NewItem(isbn, title string, authors []string, genre string, year, copiesOwned int) (*Item, error) {
	if strings.TrimSpace(isbn) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "isbn is required")
	}
	if copiesOwned < 1 {
		copiesOwned = 1
	}
	return &Item{
		ISBN:            isbn,
		Title:           title,
		Authors:         authors,
		Genre:           genre,
		Year:            year,
		CopiesOwned:     copiesOwned,
		AvailableCopies: copiesOwned,
		Active:          true,
	}, nil
}

// CanLend checks whether a copy is available for checkout.
func (i *Item) CanLend() error {
	if i.AvailableCopies < 1 {
		return dErrors.New(dErrors.CodePreconditionFailed, "no available copies")
	}
	return nil
}

// ApplyLend removes one copy from circulation. Call CanLend first.
func (i *Item) ApplyLend() {
	i.AvailableCopies--
}

// ApplyReturn restores one copy, clamped at CopiesOwned. The clamp matters
// when CopiesOwned was lowered while copies were out on loan; Clamped reports
// when that happened so the caller can log it.
func (i *Item) ApplyReturn() (clamped bool) {
	if i.AvailableCopies >= i.CopiesOwned {
		return true
	}
	i.AvailableCopies++
	return false
}

// Clone returns a deep copy so store reads never alias store-owned state.
func (i *Item) Clone() *Item {
	cp := *i
	cp.Authors = append([]string(nil), i.Authors...)
	return &cp
}

// Matches reports whether the keyword occurs in the item's title, genre,
// ISBN, or any author, case-insensitively. Inactive items never match.
func (i *Item) Matches(keyword string) bool {
	if !i.Active {
		return false
	}
	k := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(i.Title), k) ||
		strings.Contains(strings.ToLower(i.Genre), k) ||
		strings.Contains(strings.ToLower(i.ISBN), k) {
		return true
	}
	for _, a := range i.Authors {
		if strings.Contains(strings.ToLower(a), k) {
			return true
		}
	}
	return false
}

// ItemUpdate carries a partial update; nil fields are left untouched.
// ISBN is the key and cannot change.
type ItemUpdate struct {
	Title           *string   `json:"title"`
	Authors         *[]string `json:"authors"`
	Genre           *string   `json:"genre"`
	Year            *int      `json:"year"`
	CopiesOwned     *int      `json:"copies_owned"`
	AvailableCopies *int      `json:"available_copies"`
}

// ApplyUpdate mutates the item with the non-nil fields, then re-checks the
// copy-count invariant.
func (i *Item) ApplyUpdate(u ItemUpdate) error {
	if u.Title != nil {
		i.Title = *u.Title
	}
	if u.Authors != nil {
		i.Authors = *u.Authors
	}
	if u.Genre != nil {
		i.Genre = *u.Genre
	}
	if u.Year != nil {
		i.Year = *u.Year
	}
	if u.CopiesOwned != nil {
		i.CopiesOwned = *u.CopiesOwned
	}
	if u.AvailableCopies != nil {
		i.AvailableCopies = *u.AvailableCopies
	}
	if i.CopiesOwned < 0 || i.AvailableCopies < 0 || i.AvailableCopies > i.CopiesOwned {
		return dErrors.Newf(dErrors.CodeValidation,
			"available copies (%d) must be between 0 and copies owned (%d)",
			i.AvailableCopies, i.CopiesOwned)
	}
	return nil
}
