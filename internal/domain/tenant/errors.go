package tenant

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantExists      = errors.New("tenant name already in use")
	ErrInvalidSettings   = errors.New("invalid tenant settings")
	ErrCriterionNotFound = errors.New("criterion not found")
	ErrInvalidCriterion  = errors.New("invalid criterion")
	ErrEmailTaken        = errors.New("email already in use")
)
