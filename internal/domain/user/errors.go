package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid user role")
	ErrNotADriver   = errors.New("user is not a driver")
	ErrNotARider    = errors.New("user is not a rider")
)
