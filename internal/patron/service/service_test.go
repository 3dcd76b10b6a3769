package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"biblio/internal/patron/models"
	"biblio/internal/patron/store"
	dErrors "biblio/pkg/domain-errors"
)

type PatronSuite struct {
	suite.Suite
	patrons *store.InMemory
	svc     *Service
	ctx     context.Context
}

func (s *PatronSuite) SetupTest() {
	s.patrons = store.NewInMemory()
	s.svc = New(s.patrons)
	s.ctx = context.Background()
}

func TestPatronSuite(t *testing.T) {
	suite.Run(t, new(PatronSuite))
}

func (s *PatronSuite) reset() {
	s.SetupTest()
}

func (s *PatronSuite) TestRegister() {
	s.Run("new patron starts with empty loan state and default limit", func() {
		s.reset()
		patron, err := s.svc.Register(s.ctx, RegisterParams{
			LibraryID: "P1",
			Name:      "Ada Lovelace",
			Email:     "ada@example.org",
		})
		s.Require().NoError(err)
		s.Empty(patron.CurrentLoans)
		s.Empty(patron.History)
		s.Zero(patron.FinesOwed)
		s.Equal(models.DefaultMaxLimit, patron.MaxLimit)
		s.Equal("ada@example.org", patron.Email)
	})

	s.Run("duplicate library id is a conflict", func() {
		s.reset()
		_, err := s.svc.Register(s.ctx, RegisterParams{LibraryID: "P1", Name: "Ada"})
		s.Require().NoError(err)
		_, err = s.svc.Register(s.ctx, RegisterParams{LibraryID: "P1", Name: "Grace"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("blank library id is rejected", func() {
		s.reset()
		_, err := s.svc.Register(s.ctx, RegisterParams{LibraryID: " ", Name: "Ada"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PatronSuite) TestGet() {
	s.Run("found", func() {
		s.reset()
		_, err := s.svc.Register(s.ctx, RegisterParams{LibraryID: "P1", Name: "Ada"})
		s.Require().NoError(err)
		patron, err := s.svc.Get(s.ctx, "P1")
		s.Require().NoError(err)
		s.Equal("Ada", patron.Name)
	})

	s.Run("unknown id", func() {
		s.reset()
		_, err := s.svc.Get(s.ctx, "missing")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PatronSuite) TestUpdateContact() {
	s.Run("only supplied fields change", func() {
		s.reset()
		_, err := s.svc.Register(s.ctx, RegisterParams{
			LibraryID: "P1",
			Name:      "Ada",
			Email:     "old@example.org",
			Phone:     "555-0100",
		})
		s.Require().NoError(err)

		email := "new@example.org"
		patron, err := s.svc.UpdateContact(s.ctx, "P1", models.ContactUpdate{Email: &email})
		s.Require().NoError(err)
		s.Equal("new@example.org", patron.Email)
		s.Equal("555-0100", patron.Phone)
	})

	s.Run("loan state survives a contact update", func() {
		s.reset()
		patron, err := models.NewPatron("P1", "Ada")
		s.Require().NoError(err)
		patron.ApplyCheckout("L1")
		patron.FinesOwed = 12.5
		s.Require().NoError(s.patrons.Create(s.ctx, patron))

		phone := "555-0199"
		updated, err := s.svc.UpdateContact(s.ctx, "P1", models.ContactUpdate{Phone: &phone})
		s.Require().NoError(err)
		s.Equal([]string{"L1"}, updated.CurrentLoans)
		s.Equal(12.5, updated.FinesOwed)
	})

	s.Run("unknown id", func() {
		s.reset()
		phone := "555-0100"
		_, err := s.svc.UpdateContact(s.ctx, "missing", models.ContactUpdate{Phone: &phone})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PatronSuite) TestList() {
	s.reset()
	for _, id := range []string{"P1", "P2", "P3"} {
		_, err := s.svc.Register(s.ctx, RegisterParams{LibraryID: id, Name: "Patron " + id})
		s.Require().NoError(err)
	}

	patrons, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(patrons, 3)
	s.Equal("P1", patrons[0].LibraryID)
	s.Equal("P3", patrons[2].LibraryID)
}
