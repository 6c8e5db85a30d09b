package staff

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"staffeval/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func normalize(in Input) Input {
	in.EmployeeNumber = strings.TrimSpace(in.EmployeeNumber)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
	return in
}

func Validate(in Input) error {
	if in.FirstName == "" || in.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidStaff)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email is invalid", ErrInvalidStaff)
	}
	return nil
}

// Create adds a staff record. When login is set a user account with the
// given role is created and linked to the record.
func (s *Service) Create(ctx context.Context, tenantID string, in Input, login *Login) (Staff, error) {
	in = normalize(in)
	if err := Validate(in); err != nil {
		return Staff{}, err
	}
	var hash, role string
	if login != nil {
		role = login.Role
		if role == "" {
			role = auth.RoleStaff
		}
		if role != auth.RoleStaff && role != auth.RoleAdmin {
			return Staff{}, ErrInvalidRole
		}
		if err := auth.ValidatePassword(login.Password); err != nil {
			return Staff{}, err
		}
		var err error
		if hash, err = auth.HashPassword(login.Password); err != nil {
			return Staff{}, err
		}
	}

	var out Staff
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		taken, err := tx.EmailInUse(ctx, tenantID, in.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		userID := ""
		if login != nil {
			roleID, err := tx.RoleIDByName(ctx, tenantID, role)
			if err != nil {
				return fmt.Errorf("lookup role %s: %w", role, err)
			}
			userID, err = tx.CreateUser(ctx, tenantID, in.Email, in.FirstName+" "+in.LastName, hash, roleID)
			if err != nil {
				return err
			}
		}
		id, err := tx.Create(ctx, tenantID, userID, in)
		if err != nil {
			return err
		}
		out, err = tx.Get(ctx, tenantID, id)
		return err
	})
	return out, err
}

func (s *Service) Update(ctx context.Context, tenantID, staffID string, in Input) (Staff, error) {
	in = normalize(in)
	if err := Validate(in); err != nil {
		return Staff{}, err
	}
	var out Staff
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		taken, err := tx.EmailInUse(ctx, tenantID, in.Email, staffID)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		if err := tx.Update(ctx, tenantID, staffID, in); err != nil {
			return err
		}
		out, err = tx.Get(ctx, tenantID, staffID)
		return err
	})
	return out, err
}

// Deactivate marks the staff record inactive and disables its login.
func (s *Service) Deactivate(ctx context.Context, tenantID, staffID string) (Staff, error) {
	var out Staff
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		current, err := tx.Get(ctx, tenantID, staffID)
		if err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, tenantID, staffID, StatusInactive); err != nil {
			return err
		}
		if current.UserID != "" {
			if err := tx.SetUserStatus(ctx, tenantID, current.UserID, auth.UserStatusDisabled); err != nil {
				return err
			}
		}
		current.Status = StatusInactive
		out = current
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, tenantID, staffID string) (Staff, error) {
	return s.store.Get(ctx, tenantID, staffID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Staff, int, error) {
	items, err := s.store.List(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) IDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.IDByUserID(ctx, tenantID, userID)
}
