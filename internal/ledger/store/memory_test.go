package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amicable/internal/ledger/models"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
)

type InMemoryLedgerSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLedgerSuite))
}

func (s *InMemoryLedgerSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryLedgerSuite) TestLatestRoleDecides() {
	const user domain.UserID = 10
	v := s.store.AddVehicle(models.Vehicle{Sign: "AB-12-34"})
	s.store.AddRole(v, user, models.RoleOwner)

	s.Run("current owner sees the vehicle", func() {
		got, err := s.store.VehicleForUser(s.ctx, user, v)
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, got.Role.Role)
	})

	s.Run("later former-user entry hides it", func() {
		s.store.AddRole(v, user, models.RoleFormerUser)
		_, err := s.store.VehicleForUser(s.ctx, user, v)
		s.ErrorIs(err, sentinel.ErrNotFound)

		list, err := s.store.VehiclesForUser(s.ctx, user)
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("other users never see it", func() {
		_, err := s.store.VehicleForUser(s.ctx, 99, v)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryLedgerSuite) TestLatestInsuranceByExpireDate() {
	const user domain.UserID = 11
	company := s.store.AddCompany("Claims@Insurer.example")
	v := s.store.AddVehicle(models.Vehicle{Sign: "CD-55"})
	s.store.AddRole(v, user, models.RoleUser)
	newer := s.store.AddInsurance(models.Insurance{VehicleID: v, Number: "N-2", StartDate: date(2024, 1, 1), ExpireDate: date(2024, 12, 31), CompanyID: company})
	s.store.AddInsurance(models.Insurance{VehicleID: v, Number: "N-1", StartDate: date(2023, 1, 1), ExpireDate: date(2023, 12, 31)})

	got, err := s.store.VehicleForUser(s.ctx, user, v)
	s.Require().NoError(err)
	s.Require().NotNil(got.Insurance)
	s.Equal(newer, got.Insurance.ID)
	s.Equal("claims@insurer.example", got.Insurance.CompanyEmail)

	ids, err := s.store.InsuranceIDsForCompany(s.ctx, "CLAIMS@insurer.example")
	s.Require().NoError(err)
	s.Equal([]domain.InsuranceID{newer}, ids)
}

func (s *InMemoryLedgerSuite) TestVehicleAndInsuranceLookup() {
	v := s.store.AddVehicle(models.Vehicle{Sign: "EF-1", Model: "Golf"})
	ins := s.store.AddInsurance(models.Insurance{VehicleID: v, Number: "P-9", StartDate: date(2024, 1, 1), ExpireDate: date(2024, 6, 30)})

	got, err := s.store.Vehicle(s.ctx, v)
	s.Require().NoError(err)
	s.Equal("Golf", got.Model)
	s.Nil(got.Role)

	gotIns, err := s.store.Insurance(s.ctx, ins)
	s.Require().NoError(err)
	s.Equal("P-9", gotIns.Number)

	_, err = s.store.Insurance(s.ctx, 12345)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
