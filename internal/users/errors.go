package users

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrDuplicateCedula is returned when the cedula is already registered.
	ErrDuplicateCedula = errors.New("users: cedula already registered")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrInvalidCredentials is returned on bad login attempts. The message
	// is deliberately the same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInactiveAccount is returned when a deactivated user logs in.
	ErrInactiveAccount = errors.New("users: account is inactive")
	// ErrResetTokenInvalid is returned for expired or unknown reset tokens.
	ErrResetTokenInvalid = errors.New("users: password reset token is invalid or expired")
)
