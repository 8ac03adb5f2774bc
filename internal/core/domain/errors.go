package domain

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("permission denied")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrConnectionClosed   = errors.New("connection closed")
)
