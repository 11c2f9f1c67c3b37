package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
)

// UserRepository persists users in PostgreSQL
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a PostgreSQL-backed user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, name, role, gender, gender_preference, is_online,
	rating, total_rides,
	vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
	created_at, updated_at`

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u              user.User
		pref           sql.NullString
		vMake, vModel  sql.NullString
		vColor, vPlate sql.NullString
	)

	err := row.Scan(
		&u.ID, &u.Name, &u.Role, &u.Gender, &pref, &u.IsOnline,
		&u.Rating, &u.TotalRides,
		&vMake, &vModel, &vColor, &vPlate,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pref.Valid {
		u.GenderPreference = user.GenderPreference(pref.String)
	}
	if vMake.Valid || vModel.Valid || vColor.Valid || vPlate.Valid {
		u.Vehicle = &user.Vehicle{
			Make:        vMake.String,
			Model:       vModel.String,
			Color:       vColor.String,
			PlateNumber: vPlate.String,
		}
	}
	return &u, nil
}

// Create inserts the user. Role and preference are validated up front so an
// invalid value surfaces as a typed error rather than a constraint violation.
func (repo *UserRepository) Create(ctx context.Context, u *user.User) error {
	if !u.Role.IsValid() {
		return user.ErrInvalidRole
	}
	if u.GenderPreference != "" && !u.GenderPreference.IsValid() {
		return fmt.Errorf("invalid gender preference %q", u.GenderPreference)
	}

	var vMake, vModel, vColor, vPlate sql.NullString
	if u.Vehicle != nil {
		vMake = sql.NullString{String: u.Vehicle.Make, Valid: true}
		vModel = sql.NullString{String: u.Vehicle.Model, Valid: true}
		vColor = sql.NullString{String: u.Vehicle.Color, Valid: true}
		vPlate = sql.NullString{String: u.Vehicle.PlateNumber, Valid: true}
	}

	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, role, gender, gender_preference, is_online,
			rating, total_rides,
			vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, u.ID, u.Name, u.Role, u.Gender, string(u.GenderPreference), u.IsOnline,
		u.Rating, u.TotalRides,
		vMake, vModel, vColor, vPlate,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (repo *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (repo *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := repo.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (repo *UserRepository) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE users SET is_online = $2, updated_at = NOW() WHERE id = $1
	`, id, online)
	if err != nil {
		return fmt.Errorf("failed to update online flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (repo *UserRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE users SET rating = $2, updated_at = NOW() WHERE id = $1
	`, id, rating)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (repo *UserRepository) IncrementRides(ctx context.Context, id uuid.UUID) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE users SET total_rides = total_rides + 1, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment ride count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}
