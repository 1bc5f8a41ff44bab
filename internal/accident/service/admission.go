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

// primaryHolder enforces the admission gate: the viewer must hold a
// statement (NotFound), it must be the accident's primary statement
// (Forbidden), and it must not be done (AlreadyCompleted).
func primaryHolder(statements []*models.Statement, viewer domain.Principal) (*models.Statement, error) {
	holder := models.HolderOf(statements, viewer.UserID)
	if holder == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "accident not found")
	}
	if holder.ID != models.PrimaryStatement(statements) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporting driver may manage other drivers")
	}
	if err := holder.CanEdit(); err != nil {
		return nil, err
	}
	return holder, nil
}

// AddDriver names another party on the accident. Unanswered invites with the
// same email or sign are replaced; a match that was already answered blocks
// the add.
func (s *Service) AddDriver(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.AddDriverRequest) (_ *models.TemporaryDriver, err error) {
	ctx, done := s.begin(ctx, "add_driver", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var invite *models.TemporaryDriver
	err = s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		statements, err := s.store.Statements(ctx, accidentID)
		if err != nil {
			return storageError(err, "failed to load statements")
		}
		if _, err := primaryHolder(statements, viewer); err != nil {
			return err
		}

		inv := models.NewTemporaryDriver(accidentID, req, requestcontext.Now(ctx))
		for _, st := range statements {
			if st.UserEmail == inv.DriverEmail {
				return dErrors.New(dErrors.CodeDuplicateDriver, "driver already holds a statement on this accident")
			}
		}

		invites, err := s.store.Invites(ctx, accidentID)
		if err != nil {
			return storageError(err, "failed to load invites")
		}
		var replaced []*models.TemporaryDriver
		for _, existing := range invites {
			if existing.DriverEmail != inv.DriverEmail && existing.VehicleSign != inv.VehicleSign {
				continue
			}
			if existing.Answered {
				return dErrors.New(dErrors.CodeAlreadyAnswered, "driver has already answered an invite")
			}
			replaced = append(replaced, existing)
		}
		for _, old := range replaced {
			if err := s.store.DeleteInvite(ctx, old.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return storageError(err, "failed to replace invite")
			}
		}
		if err := s.store.CreateInvite(ctx, inv); err != nil {
			return storageError(err, "failed to create invite")
		}
		invite = inv
		return s.emit(ctx, audit.Event{
			Type:       audit.EventDriverAdmitted,
			AccidentID: accidentID,
			ActorID:    viewer.UserID,
			InviteID:   inv.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementDriversAdmitted()
	return invite, nil
}

// RemoveDriver deletes an invite whatever its answered state and returns the
// refreshed accident. A statement created from the invite is kept.
func (s *Service) RemoveDriver(ctx context.Context, inviteID domain.InviteID, viewer domain.Principal) (_ *models.AccidentView, err error) {
	ctx, done := s.begin(ctx, "remove_driver", 0)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	found, err := s.store.Invite(ctx, inviteID)
	if err != nil {
		return nil, notFound(err, "invite")
	}
	accidentID := found.AccidentID

	err = s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		if _, err := s.store.Invite(ctx, inviteID); err != nil {
			return notFound(err, "invite")
		}
		statements, err := s.store.Statements(ctx, accidentID)
		if err != nil {
			return storageError(err, "failed to load statements")
		}
		if _, err := primaryHolder(statements, viewer); err != nil {
			return err
		}
		if err := s.store.DeleteInvite(ctx, inviteID); err != nil {
			return notFound(err, "invite")
		}
		return s.emit(ctx, audit.Event{
			Type:       audit.EventDriverRemoved,
			AccidentID: accidentID,
			ActorID:    viewer.UserID,
			InviteID:   inviteID,
		})
	})
	if err != nil {
		return nil, err
	}

	accident, err := s.store.Accident(ctx, accidentID)
	if err != nil {
		return nil, notFound(err, "accident")
	}
	return s.populate(ctx, accident, viewer)
}

// ListDrivers returns the accident's invites: all of them for holders and
// admins, only their own for invitees.
func (s *Service) ListDrivers(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (_ []*models.TemporaryDriver, err error) {
	ctx, done := s.begin(ctx, "list_drivers", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	invites, err := s.store.Invites(ctx, accidentID)
	if err != nil {
		return nil, storageError(err, "failed to load invites")
	}
	if invites == nil {
		invites = []*models.TemporaryDriver{}
	}
	if viewer.IsAdmin {
		return invites, nil
	}
	if _, err := s.store.StatementFor(ctx, accidentID, viewer.UserID); err == nil {
		return invites, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storageError(err, "failed to load statement")
	}
	own := invitesFor(invites, viewer.NormalizedEmail())
	if len(own) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "accident not found")
	}
	return own, nil
}
