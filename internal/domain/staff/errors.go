package staff

import "errors"

var (
	ErrStaffNotFound = errors.New("staff member not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrInvalidRole   = errors.New("login role must be Staff or Admin")
	ErrInvalidStaff  = errors.New("invalid staff record")
)
