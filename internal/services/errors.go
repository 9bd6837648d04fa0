package services

import "errors"

var (
	// ErrInvalidCredentials means the login exists but the password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired, revoked and wrong-type tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInsufficientPayment means the tendered amount does not cover the
	// check total.
	ErrInsufficientPayment = errors.New("payment amount is less than check total")
)
