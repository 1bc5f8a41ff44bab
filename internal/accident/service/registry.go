package service

import (
	"context"

	"amicable/internal/accident/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/audit"
	"amicable/pkg/requestcontext"
)

// Create reports a new accident on one of the reporter's vehicles and admits
// the reporter with a stub statement, in one transaction.
func (s *Service) Create(ctx context.Context, vehicleID domain.VehicleID, reporter domain.Principal, req *models.CreateAccidentRequest) (_ *models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "create", 0)
	defer done(&err)

	if err := requireActive(reporter); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vehicle, err := s.ledger.VehicleForUser(ctx, reporter.UserID, vehicleID)
	if err != nil {
		return nil, notFound(err, "vehicle")
	}
	if vehicle.Insurance == nil {
		return nil, dErrors.New(dErrors.CodeInsuranceWindowViolation, "vehicle has no insurance")
	}
	if !vehicle.Insurance.Covers(req.ParsedDate()) {
		return nil, dErrors.New(dErrors.CodeInsuranceWindowViolation, "insurance does not cover the accident date")
	}

	now := requestcontext.Now(ctx)
	accident, err := models.NewAccident(req.ParsedDate(), req.City, req.Address, req.Injuries, req.RoadProblems, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	stmt, err := models.NewStatement(0, reporter, vehicle, now)
	if err != nil {
		return nil, err
	}

	// The accident id is unknown until insert. Nobody else can reach the new
	// accident before commit, so the zero id only asks for atomicity.
	err = s.tx.RunInTx(ctx, 0, func(ctx context.Context) error {
		if err := s.store.CreateAccident(ctx, accident); err != nil {
			return storageError(err, "failed to create accident")
		}
		stmt.AccidentID = accident.ID
		if err := s.store.CreateStatement(ctx, stmt); err != nil {
			return storageError(err, "failed to create statement")
		}
		return s.emit(ctx, audit.Event{
			Type:        audit.EventAccidentCreated,
			AccidentID:  accident.ID,
			ActorID:     reporter.UserID,
			StatementID: stmt.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementAccidentsCreated()

	return s.populate(ctx, accident, reporter)
}

// Get returns the accident as the viewer may see it: the full view for
// admins and statement holders, the invite-only view for invitees, NotFound
// for everybody else.
func (s *Service) Get(ctx context.Context, id domain.AccidentID, viewer domain.Principal) (_ *models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "get", id)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	accident, err := s.store.Accident(ctx, id)
	if err != nil {
		return nil, notFound(err, "accident")
	}
	return s.populate(ctx, accident, viewer)
}

// ListForUser returns every accident the viewer holds a statement on or is
// invited to, ordered by id.
func (s *Service) ListForUser(ctx context.Context, viewer domain.Principal) (_ []*models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "list_for_user", 0)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	ids, err := s.store.AccidentIDsForUser(ctx, viewer.UserID, viewer.NormalizedEmail())
	if err != nil {
		return nil, storageError(err, "failed to list accidents")
	}
	return s.populateAll(ctx, ids, viewer, false)
}

// ListAll returns every accident. Admin only.
func (s *Service) ListAll(ctx context.Context, viewer domain.Principal) (_ []*models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "list_all", 0)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if !viewer.IsAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin access required")
	}
	ids, err := s.store.AllAccidentIDs(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list accidents")
	}
	return s.populateAll(ctx, ids, viewer, false)
}

// ListForInsurer returns accidents where a statement is covered by one of the
// insurer's policies or an invite names the insurer's email.
func (s *Service) ListForInsurer(ctx context.Context, viewer domain.Principal) (_ []*models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "list_for_insurer", 0)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if !viewer.IsInsurer {
		return nil, dErrors.New(dErrors.CodeForbidden, "insurer access required")
	}
	email := viewer.NormalizedEmail()
	insuranceIDs, err := s.ledger.InsuranceIDsForCompany(ctx, email)
	if err != nil {
		return nil, storageError(err, "failed to load insurances")
	}
	ids, err := s.store.AccidentIDsForInsurer(ctx, insuranceIDs, email)
	if err != nil {
		return nil, storageError(err, "failed to list accidents")
	}
	// Insurers read the full record of the claims they cover.
	return s.populateAll(ctx, ids, viewer, true)
}

// CloseCase sets the administrative closed flag. It does not gate the
// statement workflow.
func (s *Service) CloseCase(ctx context.Context, id domain.AccidentID, viewer domain.Principal) (_ *models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "close_case", id)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if !viewer.IsAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin access required")
	}

	var accident *models.Accident
	err = s.tx.RunInTx(ctx, id, func(ctx context.Context) error {
		a, err := s.store.Accident(ctx, id)
		if err != nil {
			return notFound(err, "accident")
		}
		if err := a.CanClose(); err != nil {
			return err
		}
		a.ApplyClose(requestcontext.Now(ctx))
		if err := s.store.UpdateAccident(ctx, a); err != nil {
			return storageError(err, "failed to close accident")
		}
		accident = a
		return s.emit(ctx, audit.Event{
			Type:       audit.EventCaseClosed,
			AccidentID: id,
			ActorID:    viewer.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, accident, viewer)
}
