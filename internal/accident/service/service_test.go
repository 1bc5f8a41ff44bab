package service

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amicable/internal/accident/models"
	"amicable/internal/accident/store"
	ledger "amicable/internal/ledger/models"
	ledgerstore "amicable/internal/ledger/store"
	"amicable/internal/platform/blob"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/audit"
	auditmemory "amicable/pkg/platform/audit/store/memory"
	"amicable/pkg/requestcontext"
)

// ServiceSuite runs the workflow against the in-memory store, ledger and
// outbox so every rule is exercised through the real transaction boundary.
type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ledger  *ledgerstore.InMemory
	store   *store.InMemory
	outbox  *auditmemory.InMemoryStore
	blobs   *blob.InMemory
	service *Service
	nextID  int64
	company int64
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s.ledger = ledgerstore.NewInMemory()
	s.store = store.NewInMemory()
	s.outbox = auditmemory.NewInMemoryStore()
	s.blobs = blob.NewInMemory()
	s.nextID = 0
	s.company = s.ledger.AddCompany("claims@insurer.example")
	s.service = New(s.store, s.ledger, NewShardedTx(s.store, 0),
		WithOutbox(s.outbox),
		WithBlobStore(s.blobs),
	)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type driver struct {
	domain.Principal
	vehicleID domain.VehicleID
	sign      string
}

// newDriver registers an active user owning a vehicle with sign, insured
// from start to expire.
func (s *ServiceSuite) newDriver(email, sign string, start, expire time.Time) driver {
	s.nextID++
	p := domain.Principal{UserID: domain.UserID(1000 + s.nextID), Email: email, IsActive: true}
	vid := s.ledger.AddVehicle(ledger.Vehicle{Type: "car", Model: "Golf", Sign: sign})
	s.ledger.AddRole(vid, p.UserID, ledger.RoleOwner)
	s.ledger.AddInsurance(ledger.Insurance{
		VehicleID:  vid,
		Number:     "POL-" + sign,
		StartDate:  start,
		ExpireDate: expire,
		CompanyID:  s.company,
	})
	return driver{Principal: p, vehicleID: vid, sign: sign}
}

func (s *ServiceSuite) yearDriver(email, sign string) driver {
	return s.newDriver(email, sign, day(2024, 1, 1), day(2024, 12, 31))
}

func (s *ServiceSuite) createAccident(reporter driver, date string) *models.AccidentView {
	view, err := s.service.Create(s.ctx, reporter.vehicleID, reporter.Principal, &models.CreateAccidentRequest{
		Date:    date,
		City:    "Novi Sad",
		Address: "Bulevar Oslobodjenja 1",
	})
	s.Require().NoError(err)
	return view
}

func (s *ServiceSuite) invite(accidentID domain.AccidentID, by driver, email, sign string) *models.TemporaryDriver {
	inv, err := s.service.AddDriver(s.ctx, accidentID, by.Principal, &models.AddDriverRequest{
		DriverFullName:  "Other Driver",
		DriverEmail:     email,
		VehicleSign:     sign,
		InsuranceNumber: "POL-1",
		InsuranceEmail:  "claims@insurer.example",
	})
	s.Require().NoError(err)
	return inv
}

func (s *ServiceSuite) declare(accidentID domain.AccidentID, d driver) {
	cause, comments := "changed lane", "the other car cut in"
	_, err := s.service.Update(s.ctx, accidentID, d.Principal, &models.StatementRequest{CausedBy: &cause, Comments: &comments})
	s.Require().NoError(err)
}

func (s *ServiceSuite) attachEvidence(accidentID domain.AccidentID, d driver) {
	_, err := s.service.SetSketch(s.ctx, accidentID, d.Principal, &models.SketchRequest{Points: []models.Point{{OffsetX: 1, OffsetY: 2}}})
	s.Require().NoError(err)
	_, err = s.service.AddImage(s.ctx, accidentID, d.Principal, []byte("\x89PNG..."), "image/png")
	s.Require().NoError(err)
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *ServiceSuite) requireReason(err error, reason string) {
	s.T().Helper()
	s.requireCode(err, dErrors.CodeIncompleteStatement)
	s.Equal(reason, dErrors.ReasonOf(err))
}

func (s *ServiceSuite) TestCreate() {
	s.Run("admits the reporter with a stub statement", func() {
		a := s.yearDriver("a@example.com", "NS-123-AB")
		view := s.createAccident(a, "2024-05-10")

		s.True(view.Joined)
		s.Equal("NOVI SAD", view.City)
		s.Require().Len(view.Statements, 1)
		st := view.Statements[0]
		s.Equal(a.UserID, st.UserID)
		s.Equal("a@example.com", st.UserEmail)
		s.Equal(models.PhaseStub, st.Phase)
		s.False(st.Cause.IsSet())
		s.Nil(st.CarDamage)
		s.Equal(st.ID, view.PrimaryStatementID)
		s.Require().NotNil(st.Vehicle)
		s.Equal(a.vehicleID, st.Vehicle.ID)
		s.Require().NotNil(st.Insurance)
		s.Equal("claims@insurer.example", st.Insurance.CompanyEmail)
		s.Empty(view.Invites)
		s.Contains(s.outbox.Types(), audit.EventAccidentCreated)
	})

	s.Run("vehicle not owned is not found", func() {
		a := s.yearDriver("a2@example.com", "NS-1")
		b := s.yearDriver("b2@example.com", "NS-2")
		_, err := s.service.Create(s.ctx, b.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("former user of the vehicle is not found", func() {
		a := s.yearDriver("a3@example.com", "NS-3")
		s.ledger.AddRole(a.vehicleID, a.UserID, ledger.RoleFormerUser)
		_, err := s.service.Create(s.ctx, a.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("uninsured vehicle violates the insurance window", func() {
		p := domain.Principal{UserID: 77, Email: "u@example.com", IsActive: true}
		vid := s.ledger.AddVehicle(ledger.Vehicle{Sign: "BG-9"})
		s.ledger.AddRole(vid, p.UserID, ledger.RoleUser)
		_, err := s.service.Create(s.ctx, vid, p, &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeInsuranceWindowViolation)
	})

	s.Run("expired policy violates the insurance window", func() {
		a := s.yearDriver("a6@example.com", "NS-6")
		_, err := s.service.Create(s.ctx, a.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "2025-02-01", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeInsuranceWindowViolation)
	})

	s.Run("policy not yet started violates the insurance window", func() {
		a := s.newDriver("a7@example.com", "NS-7", day(2024, 6, 1), day(2025, 5, 31))
		_, err := s.service.Create(s.ctx, a.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "2024-05-31", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeInsuranceWindowViolation)
	})

	s.Run("policy boundary days are covered", func() {
		a := s.newDriver("a8@example.com", "NS-8", day(2024, 6, 15), day(2024, 6, 30))
		first := s.createAccident(a, "2024-06-15")
		s.True(first.Date.Equal(day(2024, 6, 15)))
		s.createAccident(a, "2024-06-30")
		s.createAccident(a, "2024-06-15T00:30:00+02:00")
	})

	s.Run("inactive caller is unauthorized", func() {
		a := s.yearDriver("a4@example.com", "NS-4")
		a.IsActive = false
		_, err := s.service.Create(s.ctx, a.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("malformed date is a validation error", func() {
		a := s.yearDriver("a5@example.com", "NS-5")
		_, err := s.service.Create(s.ctx, a.vehicleID, a.Principal, &models.CreateAccidentRequest{Date: "10/05/2024", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestGetVisibility() {
	a := s.yearDriver("a@example.com", "NS-100")
	b := s.yearDriver("b@example.com", "NS-200")
	stranger := s.yearDriver("c@example.com", "NS-300")
	view := s.createAccident(a, "2024-05-10")
	s.invite(view.ID, a, "B@Example.com", "NS-200")

	s.Run("holder gets the full view", func() {
		got, err := s.service.Get(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.True(got.Joined)
		s.Len(got.Statements, 1)
		s.Len(got.Invites, 1)
	})

	s.Run("invitee gets the degraded view", func() {
		got, err := s.service.Get(s.ctx, view.ID, b.Principal)
		s.Require().NoError(err)
		s.False(got.Joined)
		s.Empty(got.Statements)
		s.Require().Len(got.Invites, 1)
		s.Equal("b@example.com", got.Invites[0].DriverEmail)
		s.Zero(got.PrimaryStatementID)
	})

	s.Run("admin gets the full view", func() {
		admin := domain.Principal{UserID: 1, Email: "root@example.com", IsActive: true, IsAdmin: true}
		got, err := s.service.Get(s.ctx, view.ID, admin)
		s.Require().NoError(err)
		s.True(got.Joined)
	})

	s.Run("anybody else gets not found", func() {
		_, err := s.service.Get(s.ctx, view.ID, stranger.Principal)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("unknown accident is not found", func() {
		_, err := s.service.Get(s.ctx, view.ID+999, a.Principal)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

// TestScenario walks the two-driver flow end to end.
func (s *ServiceSuite) TestScenario() {
	a := s.yearDriver("a@example.com", "NS-111-AA")
	b := s.yearDriver("b@example.com", "BG-222-BB")

	view := s.createAccident(a, "2024-05-10")
	s1 := view.Statements[0].ID

	inv := s.invite(view.ID, a, "b@example.com", "BG-222-BB")
	s.False(inv.Answered)

	s2, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
	s.Require().NoError(err)
	s.Greater(s2.ID, s1)

	got, err := s.service.Get(s.ctx, view.ID, a.Principal)
	s.Require().NoError(err)
	s.Require().Len(got.Invites, 1)
	s.True(got.Invites[0].Answered)
	s.Equal(s1, got.PrimaryStatementID)

	_, err = s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
	s.requireCode(err, dErrors.CodeAlreadyAnswered)

	after, err := s.service.RemoveDriver(s.ctx, inv.ID, a.Principal)
	s.Require().NoError(err)
	s.Empty(after.Invites)
	s.Len(after.Statements, 2, "removing the invite keeps the statement it produced")

	s.declare(view.ID, a)
	s.attachEvidence(view.ID, a)
	done, err := s.service.Complete(s.ctx, view.ID, a.Principal)
	s.Require().NoError(err)
	s.True(done.Done)

	final, err := s.service.Get(s.ctx, view.ID, b.Principal)
	s.Require().NoError(err)
	s.Equal(models.PhaseDone, final.Statements[0].Phase)
	s.Equal(models.PhaseStub, final.Statements[1].Phase)

	s.Equal([]audit.EventType{
		audit.EventAccidentCreated,
		audit.EventDriverAdmitted,
		audit.EventStatementSubmitted,
		audit.EventDriverRemoved,
		audit.EventStatementUpdated,
		audit.EventSketchSaved,
		audit.EventImageAdded,
		audit.EventStatementCompleted,
	}, s.outbox.Types())
}

func (s *ServiceSuite) TestAdmissionOrdering() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	stranger := s.yearDriver("x@example.com", "NS-9")
	view := s.createAccident(a, "2024-05-10")
	invB := s.invite(view.ID, a, "b@example.com", "NS-2")
	_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
	s.Require().NoError(err)

	req := &models.AddDriverRequest{
		DriverFullName:  "Third",
		DriverEmail:     "c@example.com",
		VehicleSign:     "NS-3",
		InsuranceNumber: "P",
		InsuranceEmail:  "i@example.com",
	}

	s.Run("second holder may not add", func() {
		_, err := s.service.AddDriver(s.ctx, view.ID, b.Principal, req)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("second holder may not remove", func() {
		_, err := s.service.RemoveDriver(s.ctx, invB.ID, b.Principal)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("non holder gets not found", func() {
		_, err := s.service.AddDriver(s.ctx, view.ID, stranger.Principal, req)
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.RemoveDriver(s.ctx, invB.ID, stranger.Principal)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("unknown invite is not found", func() {
		_, err := s.service.RemoveDriver(s.ctx, invB.ID+999, a.Principal)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("primary holder may add", func() {
		_, err := s.service.AddDriver(s.ctx, view.ID, a.Principal, req)
		s.Require().NoError(err)
	})

	s.Run("completed primary holder may not add", func() {
		s.declare(view.ID, a)
		s.attachEvidence(view.ID, a)
		_, err := s.service.Complete(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)

		_, err = s.service.AddDriver(s.ctx, view.ID, a.Principal, req)
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
	})
}

func (s *ServiceSuite) TestInviteReplaceOnAdd() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	view := s.createAccident(a, "2024-05-10")

	first := s.invite(view.ID, a, "e1@example.com", "s1")
	second := s.invite(view.ID, a, "E1@example.com", "S2")
	s.NotEqual(first.ID, second.ID)

	invites, err := s.service.ListDrivers(s.ctx, view.ID, a.Principal)
	s.Require().NoError(err)
	s.Require().Len(invites, 1, "same email replaces")
	s.Equal(second.ID, invites[0].ID)

	third := s.invite(view.ID, a, "e2@example.com", "s2")
	invites, err = s.service.ListDrivers(s.ctx, view.ID, a.Principal)
	s.Require().NoError(err)
	s.Require().Len(invites, 1, "same sign replaces")
	s.Equal(third.ID, invites[0].ID)
	s.Equal("S2", invites[0].VehicleSign)

	s.Run("holder email is a duplicate driver", func() {
		_, err := s.service.AddDriver(s.ctx, view.ID, a.Principal, &models.AddDriverRequest{
			DriverFullName: "Me", DriverEmail: "A@example.com", VehicleSign: "Z", InsuranceNumber: "P", InsuranceEmail: "i@example.com",
		})
		s.requireCode(err, dErrors.CodeDuplicateDriver)
	})

	s.Run("answered match blocks the add", func() {
		s.invite(view.ID, a, "b@example.com", "NS-2")
		_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
		s.Require().NoError(err)

		_, err = s.service.AddDriver(s.ctx, view.ID, a.Principal, &models.AddDriverRequest{
			DriverFullName: "Someone", DriverEmail: "new@example.com", VehicleSign: "NS-2", InsuranceNumber: "P", InsuranceEmail: "i@example.com",
		})
		s.requireCode(err, dErrors.CodeAlreadyAnswered)
	})

	s.Run("invalid request is rejected before storage", func() {
		_, err := s.service.AddDriver(s.ctx, view.ID, a.Principal, &models.AddDriverRequest{DriverEmail: "x"})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestCompletionGating() {
	a := s.yearDriver("a@example.com", "NS-1")
	view := s.createAccident(a, "2024-05-10")
	id := view.ID

	_, err := s.service.Complete(s.ctx, id, a.Principal)
	s.requireReason(err, models.ReasonNoOtherDriver)

	s.invite(id, a, "b@example.com", "NS-2")
	_, err = s.service.Complete(s.ctx, id, a.Principal)
	s.requireReason(err, models.ReasonMissingCause)

	cause := "overtook"
	_, err = s.service.Update(s.ctx, id, a.Principal, &models.StatementRequest{CausedBy: &cause})
	s.Require().NoError(err)
	_, err = s.service.Complete(s.ctx, id, a.Principal)
	s.requireReason(err, models.ReasonMissingComments)

	comments := "no damage to the pedestrians"
	_, err = s.service.Update(s.ctx, id, a.Principal, &models.StatementRequest{Comments: &comments})
	s.Require().NoError(err)
	_, err = s.service.Complete(s.ctx, id, a.Principal)
	s.requireReason(err, models.ReasonMissingImage)

	_, err = s.service.AddImage(s.ctx, id, a.Principal, []byte("jpeg"), "image/jpeg")
	s.Require().NoError(err)
	_, err = s.service.Complete(s.ctx, id, a.Principal)
	s.requireReason(err, models.ReasonMissingSketch)

	_, err = s.service.SetSketch(s.ctx, id, a.Principal, &models.SketchRequest{Points: []models.Point{}})
	s.Require().NoError(err, "an empty canvas still counts as a sketch")

	st, err := s.service.Complete(s.ctx, id, a.Principal)
	s.Require().NoError(err)
	s.True(st.Done)

	s.Run("second complete is an error", func() {
		_, err := s.service.Complete(s.ctx, id, a.Principal)
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
	})

	s.Run("done statement is frozen", func() {
		_, err := s.service.Update(s.ctx, id, a.Principal, &models.StatementRequest{Comments: &comments})
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
		damage := "scratch"
		_, err = s.service.UpdateDamageDetection(s.ctx, id, a.Principal, &models.DamageRequest{CarDamage: &damage})
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
		_, err = s.service.SetSketch(s.ctx, id, a.Principal, &models.SketchRequest{Points: []models.Point{}})
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
		_, err = s.service.AddImage(s.ctx, id, a.Principal, []byte("jpeg"), "image/jpeg")
		s.requireCode(err, dErrors.CodeAlreadyCompleted)
	})

	s.Run("non holder gets not found", func() {
		other := s.yearDriver("z@example.com", "NS-26")
		_, err := s.service.Complete(s.ctx, id, other.Principal)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestInvitedDriverIsExemptFromImages() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	view := s.createAccident(a, "2024-05-10")
	s.invite(view.ID, a, "b@example.com", "NS-2")
	_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
	s.Require().NoError(err)

	s.declare(view.ID, b)
	_, err = s.service.SetSketch(s.ctx, view.ID, b.Principal, &models.SketchRequest{Points: []models.Point{{OffsetX: 3, OffsetY: 4}}})
	s.Require().NoError(err)

	st, err := s.service.Complete(s.ctx, view.ID, b.Principal)
	s.Require().NoError(err)
	s.True(st.Done)

	s.declare(view.ID, a)
	_, err = s.service.SetSketch(s.ctx, view.ID, a.Principal, &models.SketchRequest{Points: []models.Point{}})
	s.Require().NoError(err)
	_, err = s.service.Complete(s.ctx, view.ID, a.Principal)
	s.requireReason(err, models.ReasonMissingImage)
}

func (s *ServiceSuite) TestInsuranceWindowIsInclusive() {
	a := s.yearDriver("a@example.com", "NS-1")

	cases := []struct {
		name     string
		start    time.Time
		expire   time.Time
		wantCode dErrors.Code
	}{
		{"date equals start", day(2024, 5, 10), day(2024, 6, 10), ""},
		{"date equals expire", day(2024, 4, 10), day(2024, 5, 10), ""},
		{"day after expire", day(2024, 4, 10), day(2024, 5, 9), dErrors.CodeInsuranceWindowViolation},
		{"day before start", day(2024, 5, 11), day(2024, 6, 10), dErrors.CodeInsuranceWindowViolation},
	}
	for i, tc := range cases {
		s.Run(tc.name, func() {
			sign := "KG-" + string(rune('1'+i))
			b := s.newDriver(string(rune('b'+i))+"@example.com", sign, tc.start, tc.expire)
			view := s.createAccident(a, "2024-05-10T23:30:00Z")
			s.invite(view.ID, a, b.Email, sign)

			_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
			if tc.wantCode == "" {
				s.Require().NoError(err)
				return
			}
			s.requireCode(err, tc.wantCode)
		})
	}
}

func (s *ServiceSuite) TestAddStatement() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "AB1234")
	view := s.createAccident(a, "2024-05-10")

	s.Run("without an invite is not found", func() {
		_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("reporter cannot add a second statement", func() {
		s.invite(view.ID, a, "other@example.com", "ZZ-1")
		_, err := s.service.AddStatement(s.ctx, view.ID, a.Principal, nil)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("sign with no matching digits has no vehicle", func() {
		s.invite(view.ID, a, "b@example.com", "AB-99-99")
		_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
		s.requireCode(err, dErrors.CodeNoVehicle)
	})

	s.Run("sign matches on digits", func() {
		s.invite(view.ID, a, "b@example.com", "AB-12-34")
		cause, comments := "ignored sign", "I was on the main road"
		st, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, &models.StatementRequest{CausedBy: &cause, Comments: &comments})
		s.Require().NoError(err)
		s.Equal(b.vehicleID, st.VehicleID)
		s.Equal("ignored sign", st.Cause.String())
		s.Equal(models.PhaseEdited, st.Phase())
	})

	s.Run("unknown cause is an invalid payload", func() {
		bad := "was flying"
		_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, &models.StatementRequest{CausedBy: &bad})
		s.requireCode(err, dErrors.CodeInvalidUpdatePayload)
	})
}

func (s *ServiceSuite) TestConcurrentAddStatementAdmitsOnce() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	view := s.createAccident(a, "2024-05-10")
	s.invite(view.ID, a, "b@example.com", "NS-2")

	const callers = 16
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		answered atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
			switch {
			case err == nil:
				wins.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyAnswered):
				answered.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(callers-1), answered.Load())

	statements, err := s.store.Statements(s.ctx, view.ID)
	s.Require().NoError(err)
	s.Len(statements, 2)
}

func (s *ServiceSuite) TestUpdate() {
	a := s.yearDriver("a@example.com", "NS-1")
	stranger := s.yearDriver("x@example.com", "NS-9")
	view := s.createAccident(a, "2024-05-10")

	s.Run("empty body is an invalid payload", func() {
		_, err := s.service.Update(s.ctx, view.ID, a.Principal, &models.StatementRequest{})
		s.requireCode(err, dErrors.CodeInvalidUpdatePayload)
	})

	s.Run("oversize comments are an invalid payload", func() {
		huge := strings.Repeat("x", 2001)
		_, err := s.service.Update(s.ctx, view.ID, a.Principal, &models.StatementRequest{Comments: &huge})
		s.requireCode(err, dErrors.CodeInvalidUpdatePayload)
	})

	s.Run("non holder gets not found", func() {
		comments := "x"
		_, err := s.service.Update(s.ctx, view.ID, stranger.Principal, &models.StatementRequest{Comments: &comments})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("fields are overwritten independently", func() {
		cause := "turnt left"
		st, err := s.service.Update(s.ctx, view.ID, a.Principal, &models.StatementRequest{CausedBy: &cause})
		s.Require().NoError(err)
		s.Equal("turnt left", st.Cause.String())
		s.Empty(st.Comments)

		damage := "  front bumper "
		st, err = s.service.UpdateDamageDetection(s.ctx, view.ID, a.Principal, &models.DamageRequest{CarDamage: &damage})
		s.Require().NoError(err)
		s.Require().NotNil(st.CarDamage)
		s.Equal("front bumper", *st.CarDamage)
		s.Equal("turnt left", st.Cause.String())
	})

	s.Run("missing damage is an invalid payload", func() {
		_, err := s.service.UpdateDamageDetection(s.ctx, view.ID, a.Principal, &models.DamageRequest{})
		s.requireCode(err, dErrors.CodeInvalidUpdatePayload)
	})
}

func (s *ServiceSuite) TestSketchAndImages() {
	a := s.yearDriver("a@example.com", "NS-1")
	view := s.createAccident(a, "2024-05-10")

	s.Run("update before set is not found", func() {
		_, err := s.service.UpdateSketch(s.ctx, view.ID, a.Principal, &models.SketchRequest{Points: []models.Point{}})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("set replaces, update keeps the row", func() {
		first, err := s.service.SetSketch(s.ctx, view.ID, a.Principal, &models.SketchRequest{Points: []models.Point{{OffsetX: 1, OffsetY: 1}}})
		s.Require().NoError(err)
		second, err := s.service.SetSketch(s.ctx, view.ID, a.Principal, &models.SketchRequest{Points: []models.Point{{OffsetX: 2, OffsetY: 2}}})
		s.Require().NoError(err)
		s.NotEqual(first.ID, second.ID)

		updated, err := s.service.UpdateSketch(s.ctx, view.ID, a.Principal, &models.SketchRequest{Points: []models.Point{{OffsetX: 5, OffsetY: 6}, {OffsetX: 7, OffsetY: 8}}})
		s.Require().NoError(err)
		s.Equal(second.ID, updated.ID)

		got, err := s.service.Get(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.Require().NotNil(got.Statements[0].Sketch)
		s.Equal([]models.Point{{OffsetX: 5, OffsetY: 6}, {OffsetX: 7, OffsetY: 8}}, got.Statements[0].Sketch.Points)
	})

	s.Run("images are appended and fetched", func() {
		img1, err := s.service.AddImage(s.ctx, view.ID, a.Principal, []byte("one"), "image/png")
		s.Require().NoError(err)
		img2, err := s.service.AddImage(s.ctx, view.ID, a.Principal, []byte("two"), "image/jpeg")
		s.Require().NoError(err)

		ids, err := s.service.ImageIDs(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.Equal([]domain.ImageID{img1.ID, img2.ID}, ids)
		n, err := s.service.CountImages(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.Equal(2, n)

		meta, data, err := s.service.Image(s.ctx, view.ID, a.Principal, img2.ID)
		s.Require().NoError(err)
		s.Equal([]byte("two"), data)
		s.Equal("image/jpeg", meta.ContentType)
		s.Equal(int64(3), meta.Size)
		s.Equal(2, s.blobs.Len())
	})

	s.Run("non images and empty uploads are rejected", func() {
		_, err := s.service.AddImage(s.ctx, view.ID, a.Principal, []byte("%PDF"), "application/pdf")
		s.requireCode(err, dErrors.CodeValidation)
		_, err = s.service.AddImage(s.ctx, view.ID, a.Principal, nil, "image/png")
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("oversize image is rejected", func() {
		small := New(s.store, s.ledger, NewShardedTx(s.store, 0), WithMaxImageBytes(2))
		_, err := small.AddImage(s.ctx, view.ID, a.Principal, []byte("abc"), "image/png")
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("another holder cannot fetch the image", func() {
		ids, err := s.service.ImageIDs(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		other := s.yearDriver("o@example.com", "NS-7")
		_, _, err = s.service.Image(s.ctx, view.ID, other.Principal, ids[0])
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestListings() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	first := s.createAccident(a, "2024-05-10")
	second := s.createAccident(b, "2024-05-11")
	s.invite(second.ID, b, "a@example.com", "NS-1")
	s.createAccident(b, "2024-05-12")

	s.Run("for user unions held and invited accidents", func() {
		views, err := s.service.ListForUser(s.ctx, a.Principal)
		s.Require().NoError(err)
		s.Require().Len(views, 2)
		s.Equal(first.ID, views[0].ID)
		s.True(views[0].Joined)
		s.Equal(second.ID, views[1].ID)
		s.False(views[1].Joined)
	})

	s.Run("all requires admin", func() {
		_, err := s.service.ListAll(s.ctx, a.Principal)
		s.requireCode(err, dErrors.CodeForbidden)

		admin := domain.Principal{UserID: 1, IsActive: true, IsAdmin: true}
		views, err := s.service.ListAll(s.ctx, admin)
		s.Require().NoError(err)
		s.Len(views, 3)
	})

	s.Run("insurer sees covered accidents", func() {
		_, err := s.service.ListForInsurer(s.ctx, a.Principal)
		s.requireCode(err, dErrors.CodeForbidden)

		insurer := domain.Principal{UserID: 2, Email: "Claims@Insurer.example", IsActive: true, IsInsurer: true}
		views, err := s.service.ListForInsurer(s.ctx, insurer)
		s.Require().NoError(err)
		s.Len(views, 3)
		for _, v := range views {
			s.True(v.Joined)
		}
	})
}

func (s *ServiceSuite) TestCloseCase() {
	a := s.yearDriver("a@example.com", "NS-1")
	view := s.createAccident(a, "2024-05-10")
	admin := domain.Principal{UserID: 1, IsActive: true, IsAdmin: true}

	_, err := s.service.CloseCase(s.ctx, view.ID, a.Principal)
	s.requireCode(err, dErrors.CodeForbidden)

	closed, err := s.service.CloseCase(s.ctx, view.ID, admin)
	s.Require().NoError(err)
	s.True(closed.ClosedCase)

	_, err = s.service.CloseCase(s.ctx, view.ID, admin)
	s.requireCode(err, dErrors.CodeConflict)

	s.declare(view.ID, a)
	s.Contains(s.outbox.Types(), audit.EventCaseClosed)
}

func (s *ServiceSuite) TestListDrivers() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	stranger := s.yearDriver("x@example.com", "NS-9")
	view := s.createAccident(a, "2024-05-10")
	s.invite(view.ID, a, "b@example.com", "NS-2")
	s.invite(view.ID, a, "c@example.com", "NS-3")

	all, err := s.service.ListDrivers(s.ctx, view.ID, a.Principal)
	s.Require().NoError(err)
	s.Len(all, 2)

	own, err := s.service.ListDrivers(s.ctx, view.ID, b.Principal)
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal("b@example.com", own[0].DriverEmail)

	_, err = s.service.ListDrivers(s.ctx, view.ID, stranger.Principal)
	s.requireCode(err, dErrors.CodeNotFound)
}

// failingOutbox rejects every append so the transaction around it fails.
type failingOutbox struct{}

func (failingOutbox) Append(context.Context, audit.Event) error {
	return errors.New("outbox down")
}

func (s *ServiceSuite) TestFailedTransactionLeavesNoPartialWrites() {
	a := s.yearDriver("a@example.com", "NS-1")
	b := s.yearDriver("b@example.com", "NS-2")
	view := s.createAccident(a, "2024-05-10")
	s.invite(view.ID, a, "b@example.com", "NS-2")

	broken := New(s.store, s.ledger, NewShardedTx(s.store, 0),
		WithOutbox(failingOutbox{}),
		WithBlobStore(s.blobs),
	)

	s.Run("add statement rolls back the insert and the answered flip", func() {
		_, err := broken.AddStatement(s.ctx, view.ID, b.Principal, nil)
		s.requireCode(err, dErrors.CodeInternal)

		got, err := s.service.Get(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.Len(got.Statements, 1)
		s.False(got.Invites[0].Answered)

		_, err = s.service.AddStatement(s.ctx, view.ID, b.Principal, nil)
		s.Require().NoError(err, "the invite is still claimable")
	})

	s.Run("add image removes the orphaned blob", func() {
		before := s.blobs.Len()
		_, err := broken.AddImage(s.ctx, view.ID, a.Principal, []byte("img"), "image/png")
		s.requireCode(err, dErrors.CodeInternal)
		s.Equal(before, s.blobs.Len())

		ids, err := s.service.ImageIDs(s.ctx, view.ID, a.Principal)
		s.Require().NoError(err)
		s.Empty(ids)
	})

	s.Run("create leaves no accident behind", func() {
		c := s.yearDriver("c@example.com", "NS-3")
		_, err := broken.Create(s.ctx, c.vehicleID, c.Principal, &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"})
		s.requireCode(err, dErrors.CodeInternal)

		views, err := s.service.ListForUser(s.ctx, c.Principal)
		s.Require().NoError(err)
		s.Empty(views)
	})
}
