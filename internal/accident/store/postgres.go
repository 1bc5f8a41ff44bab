package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"amicable/internal/accident/models"
	"amicable/internal/platform/postgres"
	"amicable/pkg/domain"
	"amicable/pkg/platform/sentinel"
	txcontext "amicable/pkg/platform/tx"
)

// PostgresStore persists the accident aggregate. Every method joins the
// transaction carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.Pick(ctx, s.db)
}

// -----------------------------------------------------------------------------
// Accidents
// -----------------------------------------------------------------------------

const accidentColumns = `id, date, city, address, injuries, road_problems, closed_case, created_at, updated_at`

func (s *PostgresStore) CreateAccident(ctx context.Context, a *models.Accident) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO accident (date, city, address, injuries, road_problems, closed_case, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.Date, a.City, a.Address, a.Injuries, a.RoadProblems, a.ClosedCase, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert accident: %w", err)
	}
	return nil
}

func (s *PostgresStore) Accident(ctx context.Context, id domain.AccidentID) (*models.Accident, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+accidentColumns+` FROM accident WHERE id = $1`, id)
	a := &models.Accident{}
	var injuries, roadProblems sql.NullString
	err := row.Scan(&a.ID, &a.Date, &a.City, &a.Address, &injuries, &roadProblems, &a.ClosedCase, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find accident: %w", err)
	}
	a.Injuries = nullable(injuries)
	a.RoadProblems = nullable(roadProblems)
	return a, nil
}

func (s *PostgresStore) UpdateAccident(ctx context.Context, a *models.Accident) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE accident SET closed_case = $2, updated_at = $3 WHERE id = $1`,
		a.ID, a.ClosedCase, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update accident: %w", err)
	}
	return expectOne(res, sentinel.ErrNotFound)
}

// DeleteAccident relies on ON DELETE CASCADE for owned rows.
func (s *PostgresStore) DeleteAccident(ctx context.Context, id domain.AccidentID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM accident WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete accident: %w", err)
	}
	return expectOne(res, sentinel.ErrNotFound)
}

func (s *PostgresStore) AllAccidentIDs(ctx context.Context) ([]domain.AccidentID, error) {
	return s.accidentIDs(ctx, `SELECT id FROM accident ORDER BY id`)
}

func (s *PostgresStore) AccidentIDsForUser(ctx context.Context, userID domain.UserID, email string) ([]domain.AccidentID, error) {
	return s.accidentIDs(ctx, `
		SELECT accident_id FROM accident_statement WHERE user_id = $1
		UNION
		SELECT accident_id FROM temporary_accident_driver WHERE $2 <> '' AND driver_email = $2
		ORDER BY accident_id`, userID, email)
}

func (s *PostgresStore) AccidentIDsForInsurer(ctx context.Context, insuranceIDs []domain.InsuranceID, email string) ([]domain.AccidentID, error) {
	ids := make([]int64, len(insuranceIDs))
	for i, id := range insuranceIDs {
		ids[i] = int64(id)
	}
	return s.accidentIDs(ctx, `
		SELECT accident_id FROM accident_statement WHERE insurance_id = ANY($1)
		UNION
		SELECT accident_id FROM temporary_accident_driver WHERE $2 <> '' AND insurance_email = $2
		ORDER BY accident_id`, pq.Array(ids), email)
}

func (s *PostgresStore) accidentIDs(ctx context.Context, query string, args ...any) ([]domain.AccidentID, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accident ids: %w", err)
	}
	defer rows.Close()
	ids := []domain.AccidentID{}
	for rows.Next() {
		var id domain.AccidentID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan accident id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

const statementColumns = `id, accident_id, user_id, user_email, vehicle_id, insurance_id, role_id,
	caused_by, comments, car_damage, done, created_at, updated_at`

func (s *PostgresStore) CreateStatement(ctx context.Context, st *models.Statement) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO accident_statement
			(accident_id, user_id, user_email, vehicle_id, insurance_id, role_id,
			 caused_by, comments, car_damage, done, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		st.AccidentID, st.UserID, st.UserEmail, st.VehicleID, st.InsuranceID, st.RoleID,
		st.Cause.Stored(), st.Comments, st.CarDamage, st.Done, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

func (s *PostgresStore) Statements(ctx context.Context, accidentID domain.AccidentID) ([]*models.Statement, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+statementColumns+` FROM accident_statement WHERE accident_id = $1 ORDER BY id`, accidentID)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()
	var out []*models.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) StatementFor(ctx context.Context, accidentID domain.AccidentID, userID domain.UserID) (*models.Statement, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM accident_statement WHERE accident_id = $1 AND user_id = $2`,
		accidentID, userID)
	st, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find statement: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) UpdateStatement(ctx context.Context, st *models.Statement) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE accident_statement
		SET caused_by = $2, comments = $3, car_damage = $4, updated_at = $5
		WHERE id = $1 AND done = FALSE`,
		st.ID, st.Cause.Stored(), st.Comments, st.CarDamage, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update statement: %w", err)
	}
	return expectOne(res, sentinel.ErrConflict)
}

func (s *PostgresStore) CompleteStatement(ctx context.Context, st *models.Statement) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE accident_statement SET done = TRUE, updated_at = $2 WHERE id = $1 AND done = FALSE`,
		st.ID, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("complete statement: %w", err)
	}
	return expectOne(res, sentinel.ErrConflict)
}

func scanStatement(row rowScanner) (*models.Statement, error) {
	st := &models.Statement{}
	var cause, damage sql.NullString
	err := row.Scan(&st.ID, &st.AccidentID, &st.UserID, &st.UserEmail, &st.VehicleID, &st.InsuranceID, &st.RoleID,
		&cause, &st.Comments, &damage, &st.Done, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Cause = models.CauseFromStore(nullable(cause))
	st.CarDamage = nullable(damage)
	return st, nil
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

const inviteColumns = `id, accident_id, driver_full_name, driver_email, vehicle_sign, insurance_number,
	insurance_email, answered, created_at, updated_at`

func (s *PostgresStore) CreateInvite(ctx context.Context, inv *models.TemporaryDriver) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO temporary_accident_driver
			(accident_id, driver_full_name, driver_email, vehicle_sign, insurance_number,
			 insurance_email, answered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		inv.AccidentID, inv.DriverFullName, inv.DriverEmail, inv.VehicleSign, inv.InsuranceNumber,
		inv.InsuranceEmail, inv.Answered, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Invite(ctx context.Context, id domain.InviteID) (*models.TemporaryDriver, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM temporary_accident_driver WHERE id = $1`, id)
	inv, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find invite: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) Invites(ctx context.Context, accidentID domain.AccidentID) ([]*models.TemporaryDriver, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM temporary_accident_driver WHERE accident_id = $1 ORDER BY id`, accidentID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()
	var out []*models.TemporaryDriver
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteInvite(ctx context.Context, id domain.InviteID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM temporary_accident_driver WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return expectOne(res, sentinel.ErrNotFound)
}

func (s *PostgresStore) MarkInviteAnswered(ctx context.Context, inv *models.TemporaryDriver) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE temporary_accident_driver SET answered = TRUE, updated_at = $2 WHERE id = $1 AND answered = FALSE`,
		inv.ID, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark invite answered: %w", err)
	}
	return expectOne(res, sentinel.ErrConflict)
}

func scanInvite(row rowScanner) (*models.TemporaryDriver, error) {
	inv := &models.TemporaryDriver{}
	err := row.Scan(&inv.ID, &inv.AccidentID, &inv.DriverFullName, &inv.DriverEmail, &inv.VehicleSign,
		&inv.InsuranceNumber, &inv.InsuranceEmail, &inv.Answered, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// -----------------------------------------------------------------------------
// Evidence
// -----------------------------------------------------------------------------

func (s *PostgresStore) Sketch(ctx context.Context, statementID domain.StatementID) (*models.Sketch, error) {
	sk := &models.Sketch{}
	var raw []byte
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, statement_id, points, created_at, updated_at FROM accident_sketch WHERE statement_id = $1`,
		statementID).Scan(&sk.ID, &sk.StatementID, &raw, &sk.CreatedAt, &sk.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sketch: %w", err)
	}
	if err := json.Unmarshal(raw, &sk.Points); err != nil {
		return nil, fmt.Errorf("decode sketch points: %w", err)
	}
	if sk.Points == nil {
		sk.Points = []models.Point{}
	}
	return sk, nil
}

func (s *PostgresStore) ReplaceSketch(ctx context.Context, sk *models.Sketch) error {
	raw, err := marshalPoints(sk.Points)
	if err != nil {
		return err
	}
	if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM accident_sketch WHERE statement_id = $1`, sk.StatementID); err != nil {
		return fmt.Errorf("delete sketch: %w", err)
	}
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO accident_sketch (statement_id, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		sk.StatementID, raw, sk.CreatedAt, sk.UpdatedAt).Scan(&sk.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert sketch: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSketch(ctx context.Context, sk *models.Sketch) error {
	raw, err := marshalPoints(sk.Points)
	if err != nil {
		return err
	}
	err = s.q(ctx).QueryRowContext(ctx, `
		UPDATE accident_sketch SET points = $2, updated_at = $3
		WHERE statement_id = $1
		RETURNING id, created_at`,
		sk.StatementID, raw, sk.UpdatedAt).Scan(&sk.ID, &sk.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("update sketch: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddImage(ctx context.Context, img *models.Image) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO accident_statement_image (statement_id, blob_key, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		img.StatementID, img.BlobKey, img.ContentType, img.Size, img.CreatedAt).Scan(&img.ID)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *PostgresStore) ImageIDs(ctx context.Context, statementID domain.StatementID) ([]domain.ImageID, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id FROM accident_statement_image WHERE statement_id = $1 ORDER BY id`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	ids := []domain.ImageID{}
	for rows.Next() {
		var id domain.ImageID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan image id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Image(ctx context.Context, statementID domain.StatementID, imageID domain.ImageID) (*models.Image, error) {
	img := &models.Image{}
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, statement_id, blob_key, content_type, size_bytes, created_at
		FROM accident_statement_image WHERE id = $1 AND statement_id = $2`,
		imageID, statementID).Scan(&img.ID, &img.StatementID, &img.BlobKey, &img.ContentType, &img.Size, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find image: %w", err)
	}
	return img, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalPoints(points []models.Point) ([]byte, error) {
	if points == nil {
		points = []models.Point{}
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("encode sketch points: %w", err)
	}
	return raw, nil
}

func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
