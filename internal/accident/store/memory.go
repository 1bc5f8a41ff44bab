package store

import (
	"context"
	"sort"
	"sync"

	"amicable/internal/accident/models"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
)

// InMemory keeps the accident aggregate in maps. Writes made under a context
// opened with BeginUndo are rolled back when that scope does not commit.
type InMemory struct {
	mu         sync.RWMutex
	accidents  map[domain.AccidentID]*models.Accident
	statements map[domain.StatementID]*models.Statement
	invites    map[domain.InviteID]*models.TemporaryDriver
	sketches   map[domain.StatementID]*models.Sketch
	images     map[domain.ImageID]*models.Image
	seq        int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		accidents:  make(map[domain.AccidentID]*models.Accident),
		statements: make(map[domain.StatementID]*models.Statement),
		invites:    make(map[domain.InviteID]*models.TemporaryDriver),
		sketches:   make(map[domain.StatementID]*models.Sketch),
		images:     make(map[domain.ImageID]*models.Image),
	}
}

// nextLocked hands out ids from one sequence; like database sequences, ids
// are not reused after a rollback.
func (s *InMemory) nextLocked() int64 {
	s.seq++
	return s.seq
}

// -----------------------------------------------------------------------------
// Accidents
// -----------------------------------------------------------------------------

func (s *InMemory) CreateAccident(ctx context.Context, a *models.Accident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = domain.AccidentID(s.nextLocked())
	cp := *a
	s.accidents[a.ID] = &cp
	s.recordLocked(ctx, func() { delete(s.accidents, cp.ID) })
	return nil
}

func (s *InMemory) Accident(_ context.Context, id domain.AccidentID) (*models.Accident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accidents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) UpdateAccident(ctx context.Context, a *models.Accident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.accidents[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := *a
	s.accidents[a.ID] = &cp
	s.recordLocked(ctx, func() { s.accidents[prev.ID] = prev })
	return nil
}

// DeleteAccident removes the accident and everything it owns.
func (s *InMemory) DeleteAccident(ctx context.Context, id domain.AccidentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accidents[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.accidents, id)
	s.recordLocked(ctx, func() { s.accidents[id] = a })
	for sid, st := range s.statements {
		if st.AccidentID != id {
			continue
		}
		s.deleteStatementLocked(ctx, sid)
	}
	for iid, inv := range s.invites {
		if inv.AccidentID != id {
			continue
		}
		delete(s.invites, iid)
		s.recordLocked(ctx, func() { s.invites[iid] = inv })
	}
	return nil
}

func (s *InMemory) deleteStatementLocked(ctx context.Context, sid domain.StatementID) {
	st := s.statements[sid]
	delete(s.statements, sid)
	s.recordLocked(ctx, func() { s.statements[sid] = st })
	if sk, ok := s.sketches[sid]; ok {
		delete(s.sketches, sid)
		s.recordLocked(ctx, func() { s.sketches[sid] = sk })
	}
	for imgID, img := range s.images {
		if img.StatementID != sid {
			continue
		}
		delete(s.images, imgID)
		s.recordLocked(ctx, func() { s.images[imgID] = img })
	}
}

func (s *InMemory) AllAccidentIDs(_ context.Context) ([]domain.AccidentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.AccidentID, 0, len(s.accidents))
	for id := range s.accidents {
		ids = append(ids, id)
	}
	return sortIDs(ids), nil
}

// AccidentIDsForUser returns accidents where userID holds a statement or
// email appears on an invite.
func (s *InMemory) AccidentIDsForUser(_ context.Context, userID domain.UserID, email string) ([]domain.AccidentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[domain.AccidentID]struct{})
	for _, st := range s.statements {
		if st.UserID == userID {
			set[st.AccidentID] = struct{}{}
		}
	}
	if email != "" {
		for _, inv := range s.invites {
			if inv.DriverEmail == email {
				set[inv.AccidentID] = struct{}{}
			}
		}
	}
	return idsOf(set), nil
}

// AccidentIDsForInsurer returns accidents with a statement under one of
// insuranceIDs or an invite naming email as the insurer.
func (s *InMemory) AccidentIDsForInsurer(_ context.Context, insuranceIDs []domain.InsuranceID, email string) ([]domain.AccidentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[domain.InsuranceID]struct{}, len(insuranceIDs))
	for _, id := range insuranceIDs {
		wanted[id] = struct{}{}
	}
	set := make(map[domain.AccidentID]struct{})
	for _, st := range s.statements {
		if _, ok := wanted[st.InsuranceID]; ok {
			set[st.AccidentID] = struct{}{}
		}
	}
	if email != "" {
		for _, inv := range s.invites {
			if inv.InsuranceEmail == email {
				set[inv.AccidentID] = struct{}{}
			}
		}
	}
	return idsOf(set), nil
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// CreateStatement returns sentinel.ErrAlreadyUsed when the user already holds
// a statement on the accident.
func (s *InMemory) CreateStatement(ctx context.Context, st *models.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accidents[st.AccidentID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.statements {
		if existing.AccidentID == st.AccidentID && existing.UserID == st.UserID {
			return sentinel.ErrAlreadyUsed
		}
	}
	st.ID = domain.StatementID(s.nextLocked())
	cp := cloneStatement(st)
	s.statements[st.ID] = cp
	s.recordLocked(ctx, func() { delete(s.statements, cp.ID) })
	return nil
}

// Statements lists the accident's statements ordered by id.
func (s *InMemory) Statements(_ context.Context, accidentID domain.AccidentID) ([]*models.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Statement
	for _, st := range s.statements {
		if st.AccidentID == accidentID {
			out = append(out, cloneStatement(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) StatementFor(_ context.Context, accidentID domain.AccidentID, userID domain.UserID) (*models.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.statements {
		if st.AccidentID == accidentID && st.UserID == userID {
			return cloneStatement(st), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// UpdateStatement writes the mutable driver fields. A done statement is
// frozen: the write fails with sentinel.ErrConflict.
func (s *InMemory) UpdateStatement(ctx context.Context, st *models.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.statements[st.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.Done {
		return sentinel.ErrConflict
	}
	next := cloneStatement(prev)
	next.Cause = st.Cause
	next.Comments = st.Comments
	next.CarDamage = st.CarDamage
	next.UpdatedAt = st.UpdatedAt
	s.statements[st.ID] = next
	s.recordLocked(ctx, func() { s.statements[prev.ID] = prev })
	return nil
}

// CompleteStatement flips done false -> true, or fails with
// sentinel.ErrConflict if it is already true.
func (s *InMemory) CompleteStatement(ctx context.Context, st *models.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.statements[st.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.Done {
		return sentinel.ErrConflict
	}
	next := cloneStatement(prev)
	next.Done = true
	next.UpdatedAt = st.UpdatedAt
	s.statements[st.ID] = next
	s.recordLocked(ctx, func() { s.statements[prev.ID] = prev })
	return nil
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

func (s *InMemory) CreateInvite(ctx context.Context, inv *models.TemporaryDriver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accidents[inv.AccidentID]; !ok {
		return sentinel.ErrNotFound
	}
	inv.ID = domain.InviteID(s.nextLocked())
	cp := *inv
	s.invites[inv.ID] = &cp
	s.recordLocked(ctx, func() { delete(s.invites, cp.ID) })
	return nil
}

func (s *InMemory) Invite(_ context.Context, id domain.InviteID) (*models.TemporaryDriver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

// Invites lists the accident's invites ordered by id.
func (s *InMemory) Invites(_ context.Context, accidentID domain.AccidentID) ([]*models.TemporaryDriver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TemporaryDriver
	for _, inv := range s.invites {
		if inv.AccidentID == accidentID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) DeleteInvite(ctx context.Context, id domain.InviteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.invites, id)
	s.recordLocked(ctx, func() { s.invites[id] = inv })
	return nil
}

// MarkInviteAnswered flips answered false -> true, or fails with
// sentinel.ErrConflict if another request already answered it.
func (s *InMemory) MarkInviteAnswered(ctx context.Context, inv *models.TemporaryDriver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.invites[inv.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.Answered {
		return sentinel.ErrConflict
	}
	next := *prev
	next.Answered = true
	next.UpdatedAt = inv.UpdatedAt
	s.invites[inv.ID] = &next
	s.recordLocked(ctx, func() { s.invites[prev.ID] = prev })
	return nil
}

// -----------------------------------------------------------------------------
// Evidence
// -----------------------------------------------------------------------------

func (s *InMemory) Sketch(_ context.Context, statementID domain.StatementID) (*models.Sketch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.sketches[statementID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSketch(sk), nil
}

// ReplaceSketch deletes any existing sketch for the statement and inserts sk
// with a fresh id.
func (s *InMemory) ReplaceSketch(ctx context.Context, sk *models.Sketch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statements[sk.StatementID]; !ok {
		return sentinel.ErrNotFound
	}
	sid := sk.StatementID
	prev, had := s.sketches[sid]
	sk.ID = domain.SketchID(s.nextLocked())
	s.sketches[sid] = cloneSketch(sk)
	s.recordLocked(ctx, func() {
		if had {
			s.sketches[sid] = prev
			return
		}
		delete(s.sketches, sid)
	})
	return nil
}

// UpdateSketch rewrites the points of an existing sketch in place.
func (s *InMemory) UpdateSketch(ctx context.Context, sk *models.Sketch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sketches[sk.StatementID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := cloneSketch(prev)
	next.Points = append([]models.Point{}, sk.Points...)
	next.UpdatedAt = sk.UpdatedAt
	s.sketches[sk.StatementID] = next
	sk.ID, sk.CreatedAt = next.ID, next.CreatedAt
	s.recordLocked(ctx, func() { s.sketches[prev.StatementID] = prev })
	return nil
}

func (s *InMemory) AddImage(ctx context.Context, img *models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statements[img.StatementID]; !ok {
		return sentinel.ErrNotFound
	}
	img.ID = domain.ImageID(s.nextLocked())
	cp := *img
	s.images[img.ID] = &cp
	s.recordLocked(ctx, func() { delete(s.images, cp.ID) })
	return nil
}

// ImageIDs lists the statement's image ids in upload order.
func (s *InMemory) ImageIDs(_ context.Context, statementID domain.StatementID) ([]domain.ImageID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []domain.ImageID{}
	for id, img := range s.images {
		if img.StatementID == statementID {
			ids = append(ids, id)
		}
	}
	return sortIDs(ids), nil
}

func (s *InMemory) Image(_ context.Context, statementID domain.StatementID, imageID domain.ImageID) (*models.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[imageID]
	if !ok || img.StatementID != statementID {
		return nil, sentinel.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func cloneStatement(st *models.Statement) *models.Statement {
	cp := *st
	if st.CarDamage != nil {
		v := *st.CarDamage
		cp.CarDamage = &v
	}
	return &cp
}

func cloneSketch(sk *models.Sketch) *models.Sketch {
	cp := *sk
	cp.Points = append([]models.Point{}, sk.Points...)
	return &cp
}

func idsOf(set map[domain.AccidentID]struct{}) []domain.AccidentID {
	ids := make([]domain.AccidentID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return sortIDs(ids)
}

func sortIDs[T ~int64](ids []T) []T {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
