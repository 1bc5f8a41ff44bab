package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amicable/internal/accident/models"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newAccident() *models.Accident {
	a := &models.Accident{Date: s.now, City: "NOVI SAD", Address: "BULEVAR 1", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateAccident(s.ctx, a))
	return a
}

func (s *InMemoryStoreSuite) newStatement(accidentID domain.AccidentID, userID domain.UserID) *models.Statement {
	st := &models.Statement{AccidentID: accidentID, UserID: userID, UserEmail: "u@example.com", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateStatement(s.ctx, st))
	return st
}

func (s *InMemoryStoreSuite) TestStatementUniquePerUser() {
	a := s.newAccident()
	s.newStatement(a.ID, 1)

	err := s.store.CreateStatement(s.ctx, &models.Statement{AccidentID: a.ID, UserID: 1})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	other := s.newAccident()
	s.newStatement(other.ID, 1)
}

func (s *InMemoryStoreSuite) TestStatementsOrderedByID() {
	a := s.newAccident()
	first := s.newStatement(a.ID, 1)
	second := s.newStatement(a.ID, 2)

	got, err := s.store.Statements(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal(second.ID, got[1].ID)
}

func (s *InMemoryStoreSuite) TestCompleteIsCompareAndSet() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)

	s.Require().NoError(s.store.CompleteStatement(s.ctx, st))
	s.ErrorIs(s.store.CompleteStatement(s.ctx, st), sentinel.ErrConflict)
	s.ErrorIs(s.store.UpdateStatement(s.ctx, st), sentinel.ErrConflict, "done statements are frozen")
}

func (s *InMemoryStoreSuite) TestMarkInviteAnsweredOnce() {
	a := s.newAccident()
	inv := &models.TemporaryDriver{AccidentID: a.ID, DriverEmail: "b@example.com"}
	s.Require().NoError(s.store.CreateInvite(s.ctx, inv))

	s.Require().NoError(s.store.MarkInviteAnswered(s.ctx, inv))
	s.ErrorIs(s.store.MarkInviteAnswered(s.ctx, inv), sentinel.ErrConflict)

	got, err := s.store.Invite(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.True(got.Answered)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)

	got, err := s.store.StatementFor(s.ctx, a.ID, 1)
	s.Require().NoError(err)
	got.Comments = "mutated"

	again, err := s.store.StatementFor(s.ctx, a.ID, 1)
	s.Require().NoError(err)
	s.Empty(again.Comments)
	s.Equal(st.ID, again.ID)
}

func (s *InMemoryStoreSuite) TestSketchReplaceAndUpdate() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)

	_, err := s.store.Sketch(s.ctx, st.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateSketch(s.ctx, models.NewSketch(st.ID, nil, s.now)), sentinel.ErrNotFound)

	first := models.NewSketch(st.ID, []models.Point{{OffsetX: 1, OffsetY: 2}}, s.now)
	s.Require().NoError(s.store.ReplaceSketch(s.ctx, first))
	second := models.NewSketch(st.ID, nil, s.now)
	s.Require().NoError(s.store.ReplaceSketch(s.ctx, second))
	s.NotEqual(first.ID, second.ID, "replace inserts a fresh row")

	got, err := s.store.Sketch(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Empty(got.Points)
	s.NotNil(got.Points, "empty sketch is distinct from no sketch")

	upd := models.NewSketch(st.ID, []models.Point{{OffsetX: 5, OffsetY: 6}}, s.now)
	s.Require().NoError(s.store.UpdateSketch(s.ctx, upd))
	s.Equal(second.ID, upd.ID, "update keeps the row")
}

func (s *InMemoryStoreSuite) TestImages() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)
	other := s.newStatement(a.ID, 2)

	ids, err := s.store.ImageIDs(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Empty(ids)

	img := &models.Image{StatementID: st.ID, BlobKey: "k1", ContentType: "image/png", Size: 3}
	s.Require().NoError(s.store.AddImage(s.ctx, img))

	ids, err = s.store.ImageIDs(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal([]domain.ImageID{img.ID}, ids)

	_, err = s.store.Image(s.ctx, other.ID, img.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "images are scoped to their statement")
}

func (s *InMemoryStoreSuite) TestAccidentIDsForUserUnion() {
	held := s.newAccident()
	s.newStatement(held.ID, 1)

	invited := s.newAccident()
	s.Require().NoError(s.store.CreateInvite(s.ctx, &models.TemporaryDriver{AccidentID: invited.ID, DriverEmail: "me@example.com"}))
	s.Require().NoError(s.store.CreateInvite(s.ctx, &models.TemporaryDriver{AccidentID: held.ID, DriverEmail: "me@example.com"}))

	s.newAccident()

	ids, err := s.store.AccidentIDsForUser(s.ctx, 1, "me@example.com")
	s.Require().NoError(err)
	s.Equal([]domain.AccidentID{held.ID, invited.ID}, ids)
}

func (s *InMemoryStoreSuite) TestAccidentIDsForInsurer() {
	a := s.newAccident()
	st := &models.Statement{AccidentID: a.ID, UserID: 1, InsuranceID: 44}
	s.Require().NoError(s.store.CreateStatement(s.ctx, st))
	b := s.newAccident()
	s.Require().NoError(s.store.CreateInvite(s.ctx, &models.TemporaryDriver{AccidentID: b.ID, InsuranceEmail: "claims@insurer.rs"}))

	ids, err := s.store.AccidentIDsForInsurer(s.ctx, []domain.InsuranceID{44}, "claims@insurer.rs")
	s.Require().NoError(err)
	s.Equal([]domain.AccidentID{a.ID, b.ID}, ids)
}

func (s *InMemoryStoreSuite) TestUndoRollsBackEveryWrite() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)
	inv := &models.TemporaryDriver{AccidentID: a.ID, DriverEmail: "b@example.com"}
	s.Require().NoError(s.store.CreateInvite(s.ctx, inv))

	ctx, finish := s.store.BeginUndo(s.ctx)
	s.Require().NoError(s.store.DeleteInvite(ctx, inv.ID))
	s.Require().NoError(s.store.CreateStatement(ctx, &models.Statement{AccidentID: a.ID, UserID: 2}))
	s.Require().NoError(s.store.CompleteStatement(ctx, st))
	s.Require().NoError(s.store.ReplaceSketch(ctx, models.NewSketch(st.ID, nil, s.now)))
	finish(false)

	_, err := s.store.Invite(s.ctx, inv.ID)
	s.NoError(err, "deleted invite restored")
	sts, err := s.store.Statements(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Len(sts, 1, "inserted statement removed")
	s.False(sts[0].Done, "completion undone")
	_, err = s.store.Sketch(s.ctx, st.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound), "sketch insert undone")
}

func (s *InMemoryStoreSuite) TestUndoCommitKeepsWrites() {
	a := s.newAccident()
	ctx, finish := s.store.BeginUndo(s.ctx)
	s.newStatementCtx(ctx, a.ID, 9)
	finish(true)

	_, err := s.store.StatementFor(s.ctx, a.ID, 9)
	s.NoError(err)
}

func (s *InMemoryStoreSuite) newStatementCtx(ctx context.Context, accidentID domain.AccidentID, userID domain.UserID) {
	s.Require().NoError(s.store.CreateStatement(ctx, &models.Statement{AccidentID: accidentID, UserID: userID}))
}

func (s *InMemoryStoreSuite) TestDeleteAccidentCascades() {
	a := s.newAccident()
	st := s.newStatement(a.ID, 1)
	s.Require().NoError(s.store.ReplaceSketch(s.ctx, models.NewSketch(st.ID, nil, s.now)))
	s.Require().NoError(s.store.AddImage(s.ctx, &models.Image{StatementID: st.ID, BlobKey: "k"}))
	s.Require().NoError(s.store.CreateInvite(s.ctx, &models.TemporaryDriver{AccidentID: a.ID}))

	s.Require().NoError(s.store.DeleteAccident(s.ctx, a.ID))

	sts, err := s.store.Statements(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Empty(sts)
	invs, err := s.store.Invites(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Empty(invs)
	ids, err := s.store.ImageIDs(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Empty(ids)
}
