package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
)

// RideRepository persists rides in PostgreSQL. State transitions are
// conditional UPDATEs whose WHERE clause carries the precondition, so the
// check and the write happen in one statement. Zero rows affected means the
// ride was concurrently moved out of the expected state.
type RideRepository struct {
	db *sql.DB
}

// NewRideRepository creates a PostgreSQL-backed ride repository
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

const rideColumns = `
	id, rider_id, driver_id, status,
	pickup_address, pickup_latitude, pickup_longitude,
	destination_address, destination_latitude, destination_longitude,
	fare, driver_earnings,
	feedback_rating, feedback_tags, feedback_comment,
	cancellation_reason,
	requested_at, accepted_at, started_at, completed_at, cancelled_at,
	created_at, updated_at`

// activeStatusList is the SQL list form of ride.ActiveStatuses for the
// conditional queries below. The statuses are compile-time constants, never
// user input.
var activeStatusList = func() string {
	quoted := make([]string, len(ride.ActiveStatuses))
	for i, s := range ride.ActiveStatuses {
		quoted[i] = "'" + string(s) + "'"
	}
	return strings.Join(quoted, ", ")
}()

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRide(row rowScanner) (*ride.Ride, error) {
	var (
		r            ride.Ride
		driverID     sql.NullString
		earnings     sql.NullFloat64
		rating       sql.NullInt64
		tags         pq.StringArray
		comment      sql.NullString
		cancelReason sql.NullString
		acceptedAt   sql.NullTime
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		cancelledAt  sql.NullTime
	)

	err := row.Scan(
		&r.ID, &r.RiderID, &driverID, &r.Status,
		&r.Pickup.Address, &r.Pickup.Latitude, &r.Pickup.Longitude,
		&r.Destination.Address, &r.Destination.Latitude, &r.Destination.Longitude,
		&r.Fare, &earnings,
		&rating, &tags, &comment,
		&cancelReason,
		&r.RequestedAt, &acceptedAt, &startedAt, &completedAt, &cancelledAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		id, err := uuid.Parse(driverID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid driver id in ride row: %w", err)
		}
		r.DriverID = &id
	}
	if earnings.Valid {
		r.DriverEarnings = &earnings.Float64
	}
	if rating.Valid {
		r.Feedback = &ride.Feedback{
			Rating:  int(rating.Int64),
			Tags:    []string(tags),
			Comment: comment.String,
		}
	}
	if cancelReason.Valid {
		r.CancellationReason = cancelReason.String
	}
	if acceptedAt.Valid {
		r.AcceptedAt = &acceptedAt.Time
	}
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		r.CancelledAt = &cancelledAt.Time
	}
	return &r, nil
}

func (repo *RideRepository) Create(ctx context.Context, r *ride.Ride) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO rides (
			id, rider_id, status,
			pickup_address, pickup_latitude, pickup_longitude,
			destination_address, destination_latitude, destination_longitude,
			fare, requested_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.RiderID, r.Status,
		r.Pickup.Address, r.Pickup.Latitude, r.Pickup.Longitude,
		r.Destination.Address, r.Destination.Latitude, r.Destination.Longitude,
		r.Fare, r.RequestedAt, r.CreatedAt, r.UpdatedAt)
	if isUniqueViolation(err) {
		// The partial unique index on active rides per rider fired.
		return ride.ErrActiveRideExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert ride: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
// The only unique constraints on rides beyond the primary key are the
// partial active-ride indexes.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (repo *RideRepository) GetByID(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		return nil, ride.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return r, nil
}

// conditionalUpdate runs an UPDATE ... RETURNING statement and distinguishes
// "ride gone" from "precondition lost" when no row comes back.
func (repo *RideRepository) conditionalUpdate(ctx context.Context, rideID uuid.UUID, query string, args ...interface{}) (*ride.Ride, error) {
	row := repo.db.QueryRowContext(ctx, query, args...)
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		var exists bool
		if checkErr := repo.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, rideID).Scan(&exists); checkErr != nil {
			return nil, fmt.Errorf("failed to check ride existence: %w", checkErr)
		}
		if !exists {
			return nil, ride.ErrRideNotFound
		}
		return nil, ride.ErrRideConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update ride: %w", err)
	}
	return r, nil
}

func (repo *RideRepository) Accept(ctx context.Context, rideID, driverID uuid.UUID, at time.Time) (*ride.Ride, error) {
	r, err := repo.conditionalUpdate(ctx, rideID, `
		UPDATE rides
		SET status = 'accepted', driver_id = $2, accepted_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'requested' AND driver_id IS NULL
		RETURNING `+rideColumns,
		rideID, driverID, at)
	if err != nil && isUniqueViolation(err) {
		// Partial active-ride index on driver_id fired: the driver already
		// holds another non-terminal ride.
		return nil, ride.ErrActiveRideExists
	}
	return r, err
}

func (repo *RideRepository) Start(ctx context.Context, rideID uuid.UUID, at time.Time) (*ride.Ride, error) {
	return repo.conditionalUpdate(ctx, rideID, `
		UPDATE rides
		SET status = 'started', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'accepted'
		RETURNING `+rideColumns,
		rideID, at)
}

func (repo *RideRepository) Complete(ctx context.Context, rideID uuid.UUID, earnings float64, at time.Time) (*ride.Ride, error) {
	return repo.conditionalUpdate(ctx, rideID, `
		UPDATE rides
		SET status = 'completed', driver_earnings = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'started'
		RETURNING `+rideColumns,
		rideID, earnings, at)
}

func (repo *RideRepository) Cancel(ctx context.Context, rideID uuid.UUID, reason string, at time.Time) (*ride.Ride, error) {
	return repo.conditionalUpdate(ctx, rideID, `
		UPDATE rides
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status IN (`+activeStatusList+`)
		RETURNING `+rideColumns,
		rideID, reason, at)
}

func (repo *RideRepository) AttachFeedback(ctx context.Context, rideID uuid.UUID, fb ride.Feedback) (*ride.Ride, error) {
	r, err := repo.conditionalUpdate(ctx, rideID, `
		UPDATE rides
		SET feedback_rating = $2, feedback_tags = $3, feedback_comment = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND feedback_rating IS NULL
		RETURNING `+rideColumns,
		rideID, fb.Rating, pq.Array(fb.Tags), fb.Comment)
	if err == ride.ErrRideConflict {
		// Distinguish "already rated" from "not completed yet".
		current, getErr := repo.GetByID(ctx, rideID)
		if getErr == nil && current.Feedback != nil {
			return nil, ride.ErrAlreadyRated
		}
		return nil, err
	}
	return r, err
}

func (repo *RideRepository) getActive(ctx context.Context, column string, userID uuid.UUID) (*ride.Ride, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE `+column+` = $1 AND status IN (`+activeStatusList+`)
		 LIMIT 1`, userID)
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active ride: %w", err)
	}
	return r, nil
}

func (repo *RideRepository) GetActiveByRider(ctx context.Context, riderID uuid.UUID) (*ride.Ride, error) {
	return repo.getActive(ctx, "rider_id", riderID)
}

func (repo *RideRepository) GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*ride.Ride, error) {
	return repo.getActive(ctx, "driver_id", driverID)
}

func (repo *RideRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ride.Ride, error) {
	rows, err := repo.db.QueryContext(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE rider_id = $1 OR driver_id = $1
		 ORDER BY requested_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	defer rows.Close()

	var rides []*ride.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride row: %w", err)
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

func (repo *RideRepository) ListStaleRequested(ctx context.Context, cutoff time.Time) ([]*ride.Ride, error) {
	rows, err := repo.db.QueryContext(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE status = 'requested' AND requested_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale requests: %w", err)
	}
	defer rows.Close()

	var rides []*ride.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride row: %w", err)
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

func (repo *RideRepository) AverageDriverRating(ctx context.Context, driverID uuid.UUID) (float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := repo.db.QueryRowContext(ctx, `
		SELECT AVG(feedback_rating), COUNT(feedback_rating)
		FROM rides
		WHERE driver_id = $1 AND feedback_rating IS NOT NULL
	`, driverID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute driver rating: %w", err)
	}
	return avg.Float64, count, nil
}
