package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"amicable/internal/ledger/models"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
	txcontext "amicable/pkg/platform/tx"
)

// PostgresStore reads the ledger tables. Pure I/O: the "latest role" and
// "latest insurance" rules are expressed as DISTINCT ON queries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const latestRolesQuery = `
	SELECT DISTINCT ON (v.id)
		v.id, v.vehicle_type, v.model, COALESCE(v.manufacture_year, 0), v.sign,
		r.id, r.role
	FROM vehicle v
	JOIN vehicle_role r ON r.vehicle_id = v.id
	WHERE r.user_id = $1
`

const latestInsuranceQuery = `
	SELECT DISTINCT ON (i.vehicle_id)
		i.id, i.vehicle_id, i.number, i.start_date, i.expire_date,
		COALESCE(i.insurance_company_id, 0), COALESCE(c.email, '')
	FROM insurance i
	LEFT JOIN insurance_company c ON c.id = i.insurance_company_id
	WHERE i.vehicle_id = ANY($1)
	ORDER BY i.vehicle_id, i.expire_date DESC, i.id DESC
`

func (s *PostgresStore) VehicleForUser(ctx context.Context, userID domain.UserID, vehicleID domain.VehicleID) (*models.Vehicle, error) {
	query := latestRolesQuery + ` AND v.id = $2 ORDER BY v.id, r.id DESC`
	vehicles, err := s.queryVehicles(ctx, userID, query, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("find vehicle for user: %w", err)
	}
	if len(vehicles) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return vehicles[0], nil
}

func (s *PostgresStore) VehiclesForUser(ctx context.Context, userID domain.UserID) ([]*models.Vehicle, error) {
	query := latestRolesQuery + ` ORDER BY v.id, r.id DESC`
	vehicles, err := s.queryVehicles(ctx, userID, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles for user: %w", err)
	}
	return vehicles, nil
}

func (s *PostgresStore) queryVehicles(ctx context.Context, userID domain.UserID, query string, args ...any) ([]*models.Vehicle, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		vehicles []*models.Vehicle
		ids      []int64
	)
	for rows.Next() {
		v := &models.Vehicle{Role: &models.Role{UserID: userID}}
		if err := rows.Scan(&v.ID, &v.Type, &v.Model, &v.ManufactureYear, &v.Sign, &v.Role.ID, &v.Role.Role); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		if !v.Role.Role.Current() {
			continue
		}
		v.Role.VehicleID = v.ID
		vehicles = append(vehicles, v)
		ids = append(ids, int64(v.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, nil
	}

	insurances, err := s.latestInsurances(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range vehicles {
		v.Insurance = insurances[v.ID]
	}
	return vehicles, nil
}

func (s *PostgresStore) latestInsurances(ctx context.Context, vehicleIDs []int64) (map[domain.VehicleID]*models.Insurance, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, latestInsuranceQuery, pq.Array(vehicleIDs))
	if err != nil {
		return nil, fmt.Errorf("query latest insurance: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.VehicleID]*models.Insurance, len(vehicleIDs))
	for rows.Next() {
		ins, err := scanInsurance(rows)
		if err != nil {
			return nil, err
		}
		out[ins.VehicleID] = ins
	}
	return out, rows.Err()
}

func (s *PostgresStore) Vehicle(ctx context.Context, vehicleID domain.VehicleID) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, vehicle_type, model, COALESCE(manufacture_year, 0), sign
		FROM vehicle WHERE id = $1
	`, vehicleID).Scan(&v.ID, &v.Type, &v.Model, &v.ManufactureYear, &v.Sign)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vehicle: %w", err)
	}
	insurances, err := s.latestInsurances(ctx, []int64{int64(vehicleID)})
	if err != nil {
		return nil, err
	}
	v.Insurance = insurances[vehicleID]
	return v, nil
}

func (s *PostgresStore) Insurance(ctx context.Context, insuranceID domain.InsuranceID) (*models.Insurance, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT i.id, i.vehicle_id, i.number, i.start_date, i.expire_date,
			COALESCE(i.insurance_company_id, 0), COALESCE(c.email, '')
		FROM insurance i
		LEFT JOIN insurance_company c ON c.id = i.insurance_company_id
		WHERE i.id = $1
	`, insuranceID)
	ins, err := scanInsurance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find insurance: %w", err)
	}
	return ins, nil
}

func (s *PostgresStore) InsuranceIDsForCompany(ctx context.Context, email string) ([]domain.InsuranceID, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT i.id
		FROM insurance i
		JOIN insurance_company c ON c.id = i.insurance_company_id
		WHERE lower(c.email) = $1
		ORDER BY i.id
	`, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list insurance ids for company: %w", err)
	}
	defer rows.Close()

	var out []domain.InsuranceID
	for rows.Next() {
		var id domain.InsuranceID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan insurance id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInsurance(row rowScanner) (*models.Insurance, error) {
	ins := &models.Insurance{}
	if err := row.Scan(&ins.ID, &ins.VehicleID, &ins.Number, &ins.StartDate, &ins.ExpireDate, &ins.CompanyID, &ins.CompanyEmail); err != nil {
		return nil, err
	}
	ins.StartDate = models.Day(ins.StartDate)
	ins.ExpireDate = models.Day(ins.ExpireDate)
	return ins, nil
}
