package auth

const (
	RoleSystemAdmin = "SystemAdmin"
	RoleAdmin       = "Admin"
	RoleStaff       = "Staff"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type UserContext struct {
	UserID    string
	TenantID  string
	RoleID    string
	RoleName  string
	SessionID string
}

func (u UserContext) IsAdmin() bool {
	return u.RoleName == RoleAdmin
}

func (u UserContext) IsStaff() bool {
	return u.RoleName == RoleStaff
}
