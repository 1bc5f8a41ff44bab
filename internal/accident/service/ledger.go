package service

import (
	"context"
	"errors"

	ledger "amicable/internal/ledger/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/sentinel"
	pstrings "amicable/pkg/platform/strings"
)

// Ledger is the read-only vehicle and insurance collaborator.
type Ledger interface {
	VehicleForUser(ctx context.Context, userID domain.UserID, vehicleID domain.VehicleID) (*ledger.Vehicle, error)
	VehiclesForUser(ctx context.Context, userID domain.UserID) ([]*ledger.Vehicle, error)
	Vehicle(ctx context.Context, vehicleID domain.VehicleID) (*ledger.Vehicle, error)
	Insurance(ctx context.Context, insuranceID domain.InsuranceID) (*ledger.Insurance, error)
	InsuranceIDsForCompany(ctx context.Context, email string) ([]domain.InsuranceID, error)
}

// resolveVehicleBySign finds the user's vehicle whose sign has the same
// digits as sign.
func (s *Service) resolveVehicleBySign(ctx context.Context, userID domain.UserID, sign string) (*ledger.Vehicle, error) {
	vehicles, err := s.ledger.VehiclesForUser(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storageError(err, "failed to load vehicles")
	}
	for _, v := range vehicles {
		if pstrings.SameSignNumber(v.Sign, sign) {
			return v, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNoVehicle, "no vehicle matches the invited sign")
}
