package ride

import "errors"

var (
	ErrRideNotFound = errors.New("ride not found")

	// ErrRideConflict means a conditional update found the ride in a
	// different state than required. The record is unchanged; the caller
	// maps this to InvalidTransition or AlreadyAccepted depending on the
	// attempted operation.
	ErrRideConflict = errors.New("ride state changed concurrently")

	ErrAlreadyRated = errors.New("ride already has feedback")

	// ErrActiveRideExists means a create or accept would give the rider or
	// driver a second non-terminal ride.
	ErrActiveRideExists = errors.New("user already has an active ride")
)
