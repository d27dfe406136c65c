package services

import "errors"

// Sentinel errors returned by service operations. Handlers translate these
// to HTTP statuses; anything else is treated as a storage failure (500).
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
