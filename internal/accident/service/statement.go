package service

import (
	"context"
	"errors"

	"amicable/internal/accident/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/audit"
	"amicable/pkg/platform/sentinel"
	"amicable/pkg/requestcontext"
)

// AddStatement admits an invited driver. The invite is matched by the
// viewer's email; the vehicle is the viewer's ledger vehicle whose sign has
// the same digits as the invited sign, and its insurance must cover the
// accident day. The statement insert and the invite's answered flip commit
// together.
func (s *Service) AddStatement(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.StatementRequest) (_ *models.Statement, err error) {
	ctx, done := s.begin(ctx, "add_statement", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if req == nil {
		req = &models.StatementRequest{}
	}
	req.Normalize()
	if err := req.Validate(false); err != nil {
		return nil, err
	}

	var stmt *models.Statement
	err = s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		accident, err := s.store.Accident(ctx, accidentID)
		if err != nil {
			return notFound(err, "accident")
		}
		invites, err := s.store.Invites(ctx, accidentID)
		if err != nil {
			return storageError(err, "failed to load invites")
		}
		invite := inviteFor(invites, viewer.NormalizedEmail())
		if invite == nil {
			return dErrors.New(dErrors.CodeNotFound, "invite not found")
		}
		if invite.Answered {
			return dErrors.New(dErrors.CodeAlreadyAnswered, "invite is already answered")
		}
		if _, err := s.store.StatementFor(ctx, accidentID, viewer.UserID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyAnswered, "a statement already exists for this driver")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return storageError(err, "failed to load statement")
		}

		vehicle, err := s.resolveVehicleBySign(ctx, viewer.UserID, invite.VehicleSign)
		if err != nil {
			return err
		}
		if vehicle.Insurance == nil || !vehicle.Insurance.Covers(accident.Date) {
			return dErrors.New(dErrors.CodeInsuranceWindowViolation, "insurance does not cover the accident date")
		}

		now := requestcontext.Now(ctx)
		st, err := models.NewStatement(accidentID, viewer, vehicle, now)
		if err != nil {
			return err
		}
		if req.CausedBy != nil || req.Comments != nil {
			st.ApplyUpdate(req.Cause(), req.Comments, now)
		}
		if err := s.store.CreateStatement(ctx, st); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyAnswered, "a statement already exists for this driver")
			}
			return storageError(err, "failed to create statement")
		}

		invite.ApplyAnswered(now)
		if err := s.store.MarkInviteAnswered(ctx, invite); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyAnswered, "invite is already answered")
			}
			return storageError(err, "failed to answer invite")
		}
		stmt = st
		return s.emit(ctx, audit.Event{
			Type:        audit.EventStatementSubmitted,
			AccidentID:  accidentID,
			ActorID:     viewer.UserID,
			StatementID: st.ID,
			InviteID:    invite.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementStatementsSubmitted()
	return stmt, nil
}

// Update overwrites the provided cause and comments on the viewer's statement.
func (s *Service) Update(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.StatementRequest) (_ *models.Statement, err error) {
	ctx, done := s.begin(ctx, "update_statement", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidUpdatePayload, "caused_by or comments is required")
	}
	req.Normalize()
	if err := req.Validate(true); err != nil {
		return nil, err
	}

	return s.editStatement(ctx, accidentID, viewer, "fields", func(st *models.Statement) {
		st.ApplyUpdate(req.Cause(), req.Comments, requestcontext.Now(ctx))
	})
}

// UpdateDamageDetection sets only the car damage annotation.
func (s *Service) UpdateDamageDetection(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.DamageRequest) (_ *models.Statement, err error) {
	ctx, done := s.begin(ctx, "update_damage", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidUpdatePayload, "car_damage is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.editStatement(ctx, accidentID, viewer, "car_damage", func(st *models.Statement) {
		st.ApplyDamage(*req.CarDamage, requestcontext.Now(ctx))
	})
}

func (s *Service) editStatement(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, detail string, apply func(*models.Statement)) (*models.Statement, error) {
	var stmt *models.Statement
	err := s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		st, err := s.holderStatement(ctx, accidentID, viewer)
		if err != nil {
			return err
		}
		if err := st.CanEdit(); err != nil {
			return err
		}
		apply(st)
		if err := s.store.UpdateStatement(ctx, st); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyCompleted, "statement is already completed")
			}
			return storageError(err, "failed to update statement")
		}
		stmt = st
		return s.emit(ctx, audit.Event{
			Type:        audit.EventStatementUpdated,
			AccidentID:  accidentID,
			ActorID:     viewer.UserID,
			StatementID: st.ID,
			Detail:      detail,
		})
	})
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// Complete finalizes the viewer's statement. Requirements are checked in a
// fixed order and the first one missing is reported as the reason. A
// second Complete fails with AlreadyCompleted.
func (s *Service) Complete(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (_ *models.Statement, err error) {
	ctx, done := s.begin(ctx, "complete", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}

	var stmt *models.Statement
	err = s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		st, err := s.holderStatement(ctx, accidentID, viewer)
		if err != nil {
			return err
		}
		if err := st.CanEdit(); err != nil {
			return err
		}
		if err := s.checkComplete(ctx, st, viewer); err != nil {
			return err
		}

		st.ApplyComplete(requestcontext.Now(ctx))
		if err := s.store.CompleteStatement(ctx, st); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyCompleted, "statement is already completed")
			}
			return storageError(err, "failed to complete statement")
		}
		stmt = st
		return s.emit(ctx, audit.Event{
			Type:        audit.EventStatementCompleted,
			AccidentID:  accidentID,
			ActorID:     viewer.UserID,
			StatementID: st.ID,
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIncompleteStatement) {
			s.metrics.IncrementCompletionRejected(dErrors.ReasonOf(err))
		}
		return nil, err
	}
	s.metrics.IncrementStatementsCompleted()
	return stmt, nil
}

// checkComplete verifies, in order: another party was named or joined, the
// declaration is filled in, an image exists (drivers named on an invite are
// exempt), and a sketch exists.
func (s *Service) checkComplete(ctx context.Context, st *models.Statement, viewer domain.Principal) error {
	invites, err := s.store.Invites(ctx, st.AccidentID)
	if err != nil {
		return storageError(err, "failed to load invites")
	}
	if len(invites) == 0 {
		statements, err := s.store.Statements(ctx, st.AccidentID)
		if err != nil {
			return storageError(err, "failed to load statements")
		}
		if len(statements) < 2 {
			return dErrors.NewWithReason(dErrors.CodeIncompleteStatement, models.ReasonNoOtherDriver,
				"no other driver was added to the accident")
		}
	}

	if err := st.CheckDeclared(); err != nil {
		return err
	}

	if inviteFor(invites, viewer.NormalizedEmail()) == nil {
		imageIDs, err := s.store.ImageIDs(ctx, st.ID)
		if err != nil {
			return storageError(err, "failed to load images")
		}
		if len(imageIDs) == 0 {
			return dErrors.NewWithReason(dErrors.CodeIncompleteStatement, models.ReasonMissingImage,
				"at least one image is required")
		}
	}

	if _, err := s.store.Sketch(ctx, st.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.NewWithReason(dErrors.CodeIncompleteStatement, models.ReasonMissingSketch,
				"a sketch is required")
		}
		return storageError(err, "failed to load sketch")
	}
	return nil
}
