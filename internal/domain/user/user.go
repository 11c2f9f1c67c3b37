package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes the two sides of a ride
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Gender of a user
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// GenderPreference is a rider's driver-gender preference
type GenderPreference string

const (
	PreferAny    GenderPreference = "any"
	PreferMale   GenderPreference = "male"
	PreferFemale GenderPreference = "female"
)

// Vehicle describes a driver's car
type Vehicle struct {
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Color       string `json:"color,omitempty"`
	PlateNumber string `json:"plate_number,omitempty"`
}

// User represents a rider or driver account
type User struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Role             Role             `json:"role"`
	Gender           Gender           `json:"gender"`
	GenderPreference GenderPreference `json:"gender_preference,omitempty"` // riders only
	IsOnline         bool             `json:"is_online"`                   // drivers only
	Rating           float64          `json:"rating"`
	TotalRides       int              `json:"total_rides"`
	Vehicle          *Vehicle         `json:"vehicle,omitempty"` // drivers only
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Repository defines the interface for user data access
type Repository interface {
	Create(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByIDs returns the users for the given ids; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)

	// SetOnline flips a driver's online flag.
	SetOnline(ctx context.Context, id uuid.UUID, online bool) error

	// UpdateRating sets a driver's running rating (mean of ride feedback).
	// Only the ride lifecycle may call this.
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error

	// IncrementRides bumps a driver's completed-ride counter.
	IncrementRides(ctx context.Context, id uuid.UUID) error
}

// IsValid validates the role
func (r Role) IsValid() bool {
	return r == RoleRider || r == RoleDriver
}

// IsValid validates the gender preference
func (p GenderPreference) IsValid() bool {
	switch p {
	case PreferAny, PreferMale, PreferFemale:
		return true
	}
	return false
}

// Matches reports whether a driver's gender satisfies the preference.
func (p GenderPreference) Matches(g Gender) bool {
	return p == PreferAny || p == "" || string(p) == string(g)
}
