package staff

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Staff struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId,omitempty"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Department     string     `json:"department"`
	Position       string     `json:"position"`
	Status         string     `json:"status"`
	Role           string     `json:"role,omitempty"`
	HiredOn        *time.Time `json:"hiredOn,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

type Input struct {
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Department     string     `json:"department"`
	Position       string     `json:"position"`
	HiredOn        *time.Time `json:"hiredOn"`
}

// Login describes an optional user account created with the staff record.
type Login struct {
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Filter struct {
	Status     string
	Department string
	Search     string
}
