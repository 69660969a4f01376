package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrMissingConfig   = errors.New("provider configuration missing")
	ErrNotRetriable    = errors.New("job is not in a retriable state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")
)
