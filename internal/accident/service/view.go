package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"amicable/internal/accident/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/sentinel"
)

// viewConcurrency bounds the ledger and evidence lookups in flight per view.
const viewConcurrency = 8

// populate builds the view of accident that viewer is allowed to see.
func (s *Service) populate(ctx context.Context, accident *models.Accident, viewer domain.Principal) (*models.AccidentView, error) {
	statements, err := s.store.Statements(ctx, accident.ID)
	if err != nil {
		return nil, storageError(err, "failed to load statements")
	}
	invites, err := s.store.Invites(ctx, accident.ID)
	if err != nil {
		return nil, storageError(err, "failed to load invites")
	}

	if viewer.IsAdmin || models.HolderOf(statements, viewer.UserID) != nil {
		return s.fullView(ctx, accident, statements, invites)
	}

	own := invitesFor(invites, viewer.NormalizedEmail())
	if len(own) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "accident not found")
	}
	return &models.AccidentView{
		Accident:   accident,
		Joined:     false,
		Statements: []*models.StatementView{},
		Invites:    own,
	}, nil
}

// fullView fans out the per-statement evidence and ledger lookups.
func (s *Service) fullView(ctx context.Context, accident *models.Accident, statements []*models.Statement, invites []*models.TemporaryDriver) (*models.AccidentView, error) {
	views := make([]*models.StatementView, len(statements))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(viewConcurrency)

	for i, st := range statements {
		g.Go(func() error {
			v, err := s.statementView(ctx, st)
			if err != nil {
				return err
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if invites == nil {
		invites = []*models.TemporaryDriver{}
	}
	return &models.AccidentView{
		Accident:           accident,
		Joined:             true,
		PrimaryStatementID: models.PrimaryStatement(statements),
		Statements:         views,
		Invites:            invites,
	}, nil
}

func (s *Service) statementView(ctx context.Context, st *models.Statement) (*models.StatementView, error) {
	view := &models.StatementView{Statement: st, Phase: st.Phase()}

	sketch, err := s.store.Sketch(ctx, st.ID)
	switch {
	case err == nil:
		view.Sketch = sketch
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, storageError(err, "failed to load sketch")
	}

	view.ImageIDs, err = s.store.ImageIDs(ctx, st.ID)
	if err != nil {
		return nil, storageError(err, "failed to load images")
	}

	// The ledger snapshot is informational; a vehicle or policy deleted from
	// the ledger leaves the statement readable.
	vehicle, err := s.ledger.Vehicle(ctx, st.VehicleID)
	switch {
	case err == nil:
		vehicle.Insurance = nil
		view.Vehicle = vehicle
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, storageError(err, "failed to load vehicle")
	}
	insurance, err := s.ledger.Insurance(ctx, st.InsuranceID)
	switch {
	case err == nil:
		view.Insurance = insurance
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, storageError(err, "failed to load insurance")
	}
	return view, nil
}

// populateAll builds the views for ids in order. With full set every view is
// the joined one regardless of the viewer's own participation.
func (s *Service) populateAll(ctx context.Context, ids []domain.AccidentID, viewer domain.Principal, full bool) ([]*models.AccidentView, error) {
	views := make([]*models.AccidentView, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(viewConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			accident, err := s.store.Accident(gctx, id)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil
				}
				return storageError(err, "failed to load accident")
			}
			var view *models.AccidentView
			if full {
				view, err = s.loadFullView(gctx, accident)
			} else {
				view, err = s.populate(gctx, accident, viewer)
			}
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.AccidentView, 0, len(views))
	for _, v := range views {
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) loadFullView(ctx context.Context, accident *models.Accident) (*models.AccidentView, error) {
	statements, err := s.store.Statements(ctx, accident.ID)
	if err != nil {
		return nil, storageError(err, "failed to load statements")
	}
	invites, err := s.store.Invites(ctx, accident.ID)
	if err != nil {
		return nil, storageError(err, "failed to load invites")
	}
	return s.fullView(ctx, accident, statements, invites)
}

func invitesFor(invites []*models.TemporaryDriver, email string) []*models.TemporaryDriver {
	var out []*models.TemporaryDriver
	for _, inv := range invites {
		if inv.DriverEmail == email {
			out = append(out, inv)
		}
	}
	return out
}

func inviteFor(invites []*models.TemporaryDriver, email string) *models.TemporaryDriver {
	for _, inv := range invites {
		if inv.DriverEmail == email {
			return inv
		}
	}
	return nil
}
