package auth

import "errors"

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrNationalIDTaken    = errors.New("national id already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
)
