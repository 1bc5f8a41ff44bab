package store

import (
	"context"
	"sort"
	"sync"

	"amicable/internal/ledger/models"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
)

// InMemory is a ledger backed by maps. The Add* methods stand in for the
// vehicle service that owns these records.
type InMemory struct {
	mu         sync.RWMutex
	vehicles   map[domain.VehicleID]models.Vehicle
	roles      []models.Role
	insurances []models.Insurance
	companies  map[int64]string
	nextID     int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		vehicles:  make(map[domain.VehicleID]models.Vehicle),
		companies: make(map[int64]string),
	}
}

func (s *InMemory) next() int64 {
	s.nextID++
	return s.nextID
}

// AddCompany registers an insurance company and returns its id.
func (s *InMemory) AddCompany(email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next()
	s.companies[id] = domain.NormalizeEmail(email)
	return id
}

// AddVehicle stores v (ignoring Role and Insurance) and returns its id.
func (s *InMemory) AddVehicle(v models.Vehicle) domain.VehicleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = domain.VehicleID(s.next())
	v.Role, v.Insurance = nil, nil
	s.vehicles[v.ID] = v
	return v.ID
}

// AddRole appends a role history entry.
func (s *InMemory) AddRole(vehicleID domain.VehicleID, userID domain.UserID, role models.RoleType) domain.RoleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := models.Role{ID: domain.RoleID(s.next()), VehicleID: vehicleID, UserID: userID, Role: role}
	s.roles = append(s.roles, r)
	return r.ID
}

// AddInsurance appends a coverage interval.
func (s *InMemory) AddInsurance(ins models.Insurance) domain.InsuranceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ins.ID = domain.InsuranceID(s.next())
	ins.StartDate = models.Day(ins.StartDate)
	ins.ExpireDate = models.Day(ins.ExpireDate)
	s.insurances = append(s.insurances, ins)
	return ins.ID
}

func (s *InMemory) VehicleForUser(_ context.Context, userID domain.UserID, vehicleID domain.VehicleID) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicleForUserLocked(userID, vehicleID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v, nil
}

func (s *InMemory) VehiclesForUser(_ context.Context, userID domain.UserID) ([]*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.VehicleID]bool)
	var out []*models.Vehicle
	for _, r := range s.roles {
		if r.UserID != userID || seen[r.VehicleID] {
			continue
		}
		seen[r.VehicleID] = true
		if v, ok := s.vehicleForUserLocked(userID, r.VehicleID); ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Vehicle(_ context.Context, vehicleID domain.VehicleID) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	v.Insurance = s.latestInsuranceLocked(vehicleID)
	return &v, nil
}

func (s *InMemory) Insurance(_ context.Context, insuranceID domain.InsuranceID) (*models.Insurance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ins := range s.insurances {
		if ins.ID == insuranceID {
			out := s.withCompanyLocked(ins)
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) InsuranceIDsForCompany(_ context.Context, email string) ([]domain.InsuranceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = domain.NormalizeEmail(email)
	var out []domain.InsuranceID
	for _, ins := range s.insurances {
		if ins.CompanyID != 0 && s.companies[ins.CompanyID] == email {
			out = append(out, ins.ID)
		}
	}
	return out, nil
}

// vehicleForUserLocked applies the latest-role rule: the newest role entry
// for (vehicle, user) decides, and it must still be current.
func (s *InMemory) vehicleForUserLocked(userID domain.UserID, vehicleID domain.VehicleID) (*models.Vehicle, bool) {
	base, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, false
	}
	var latest *models.Role
	for i := range s.roles {
		r := s.roles[i]
		if r.VehicleID == vehicleID && r.UserID == userID && (latest == nil || r.ID > latest.ID) {
			latest = &r
		}
	}
	if latest == nil || !latest.Role.Current() {
		return nil, false
	}
	base.Role = latest
	base.Insurance = s.latestInsuranceLocked(vehicleID)
	return &base, true
}

// latestInsuranceLocked picks the interval with the greatest expire date,
// breaking ties by id.
func (s *InMemory) latestInsuranceLocked(vehicleID domain.VehicleID) *models.Insurance {
	var latest *models.Insurance
	for _, ins := range s.insurances {
		if ins.VehicleID != vehicleID {
			continue
		}
		if latest == nil || ins.ExpireDate.After(latest.ExpireDate) ||
			(ins.ExpireDate.Equal(latest.ExpireDate) && ins.ID > latest.ID) {
			withCompany := s.withCompanyLocked(ins)
			latest = &withCompany
		}
	}
	return latest
}

func (s *InMemory) withCompanyLocked(ins models.Insurance) models.Insurance {
	if ins.CompanyID != 0 {
		ins.CompanyEmail = s.companies[ins.CompanyID]
	}
	return ins
}
