package services

import "errors"

// Failure classes surfaced to handlers. Services wrap these with context via
// fmt.Errorf("%w: ..."); handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("invalid input")
	ErrUpload     = errors.New("upload failed")
)
