package dashboard

import "errors"

var (
	ErrNoStaffRecord = errors.New("no staff record linked to this user")
	ErrInvalidYear   = errors.New("year out of range")
)
