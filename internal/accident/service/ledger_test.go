package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"amicable/internal/accident/models"
	"amicable/internal/accident/service/mocks"
	"amicable/internal/accident/store"
	ledger "amicable/internal/ledger/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/sentinel"
)

func TestLedgerFailures(t *testing.T) {
	reporter := domain.Principal{UserID: 7, Email: "r@example.com", IsActive: true}
	req := func() *models.CreateAccidentRequest {
		return &models.CreateAccidentRequest{Date: "2024-05-10", City: "X", Address: "Y"}
	}

	t.Run("ledger outage surfaces as unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLedger := mocks.NewMockLedger(ctrl)
		mem := store.NewInMemory()
		svc := New(mem, mockLedger, NewShardedTx(mem, 0))

		mockLedger.EXPECT().VehicleForUser(gomock.Any(), reporter.UserID, domain.VehicleID(3)).
			Return(nil, sentinel.ErrUnavailable)

		_, err := svc.Create(context.Background(), 3, reporter, req())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("unexpected ledger error is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLedger := mocks.NewMockLedger(ctrl)
		mem := store.NewInMemory()
		svc := New(mem, mockLedger, NewShardedTx(mem, 0))

		mockLedger.EXPECT().VehicleForUser(gomock.Any(), reporter.UserID, domain.VehicleID(3)).
			Return(nil, errors.New("connection reset"))

		_, err := svc.Create(context.Background(), 3, reporter, req())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("deleted ledger records leave the view readable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLedger := mocks.NewMockLedger(ctrl)
		mem := store.NewInMemory()
		svc := New(mem, mockLedger, NewShardedTx(mem, 0))

		vehicle := &ledger.Vehicle{
			ID:        3,
			Sign:      "NS-1",
			Role:      &ledger.Role{ID: 4, VehicleID: 3, UserID: reporter.UserID, Role: ledger.RoleOwner},
			Insurance: &ledger.Insurance{ID: 5, VehicleID: 3, StartDate: day(2024, 1, 1), ExpireDate: day(2024, 12, 31)},
		}
		mockLedger.EXPECT().VehicleForUser(gomock.Any(), reporter.UserID, domain.VehicleID(3)).Return(vehicle, nil)
		mockLedger.EXPECT().Vehicle(gomock.Any(), domain.VehicleID(3)).Return(nil, sentinel.ErrNotFound)
		mockLedger.EXPECT().Insurance(gomock.Any(), domain.InsuranceID(5)).Return(nil, sentinel.ErrNotFound)

		view, err := svc.Create(context.Background(), 3, reporter, req())
		require.NoError(t, err)
		require.Len(t, view.Statements, 1)
		assert.Nil(t, view.Statements[0].Vehicle)
		assert.Nil(t, view.Statements[0].Insurance)
		assert.Equal(t, domain.InsuranceID(5), view.Statements[0].InsuranceID)
	})

	t.Run("vehicle lookup failure during add statement is not a missing vehicle", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLedger := mocks.NewMockLedger(ctrl)
		mem := store.NewInMemory()
		svc := New(mem, mockLedger, NewShardedTx(mem, 0))

		mockLedger.EXPECT().VehiclesForUser(gomock.Any(), domain.UserID(9)).Return(nil, errors.New("timeout"))
		_, err := svc.resolveVehicleBySign(context.Background(), 9, "NS-1")
		require.Error(t, err)
		assert.False(t, dErrors.HasCode(err, dErrors.CodeNoVehicle))
	})
}
