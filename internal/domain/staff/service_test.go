package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"staffeval/internal/domain/auth"
)

type fakeStore struct {
	staff      map[string]Staff
	users      map[string]string
	userStatus map[string]string
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{staff: map[string]Staff{}, users: map[string]string{}, userStatus: map[string]string{}}
}

func (f *fakeStore) InTx(_ context.Context, fn func(tx StoreAPI) error) error { return fn(f) }

func (f *fakeStore) Create(_ context.Context, _, userID string, in Input) (string, error) {
	f.nextID++
	id := fmt.Sprintf("staff-%d", f.nextID)
	f.staff[id] = Staff{ID: id, UserID: userID, FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Department: in.Department, Status: StatusActive}
	return id, nil
}

func (f *fakeStore) Update(_ context.Context, _, staffID string, in Input) error {
	current, ok := f.staff[staffID]
	if !ok {
		return ErrStaffNotFound
	}
	current.FirstName, current.LastName, current.Email = in.FirstName, in.LastName, in.Email
	f.staff[staffID] = current
	return nil
}

func (f *fakeStore) Get(_ context.Context, _, staffID string) (Staff, error) {
	member, ok := f.staff[staffID]
	if !ok {
		return Staff{}, ErrStaffNotFound
	}
	return member, nil
}

func (f *fakeStore) List(context.Context, string, Filter, int, int) ([]Staff, error) {
	var out []Staff
	for _, member := range f.staff {
		out = append(out, member)
	}
	return out, nil
}

func (f *fakeStore) Count(context.Context, string, Filter) (int, error) { return len(f.staff), nil }

func (f *fakeStore) SetStatus(_ context.Context, _, staffID, status string) error {
	member, ok := f.staff[staffID]
	if !ok {
		return ErrStaffNotFound
	}
	member.Status = status
	f.staff[staffID] = member
	return nil
}

func (f *fakeStore) IDByUserID(_ context.Context, _, userID string) (string, error) {
	for id, member := range f.staff {
		if member.UserID == userID {
			return id, nil
		}
	}
	return "", ErrStaffNotFound
}

func (f *fakeStore) EmailInUse(_ context.Context, _, email, exceptStaffID string) (bool, error) {
	for id, member := range f.staff {
		if id != exceptStaffID && strings.EqualFold(member.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RoleIDByName(_ context.Context, _, roleName string) (string, error) {
	return "role-" + roleName, nil
}

func (f *fakeStore) CreateUser(_ context.Context, _, email, _, _, roleID string) (string, error) {
	id := "user-" + email
	f.users[id] = roleID
	return id, nil
}

func (f *fakeStore) SetUserStatus(_ context.Context, _, userID, status string) error {
	f.userStatus[userID] = status
	return nil
}

func TestCreateWithLogin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	member, err := svc.Create(context.Background(), "t1", Input{FirstName: " Ana ", LastName: "Reyes", Email: "Ana@Acme.test"}, &Login{Password: "Welcome2025"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if member.Email != "ana@acme.test" || member.FirstName != "Ana" {
		t.Fatalf("expected normalized fields, got %+v", member)
	}
	if member.UserID == "" || store.users[member.UserID] != "role-"+auth.RoleStaff {
		t.Fatalf("expected linked staff login, got %+v users=%v", member, store.users)
	}

	if _, err := svc.Create(context.Background(), "t1", Input{FirstName: "A", LastName: "R", Email: "ana@acme.test"}, nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "t1", Input{LastName: "R", Email: "a@b.test"}, nil); !errors.Is(err, ErrInvalidStaff) {
		t.Fatalf("expected invalid staff, got %v", err)
	}
	if _, err := svc.Create(ctx, "t1", Input{FirstName: "A", LastName: "R", Email: "nope"}, nil); !errors.Is(err, ErrInvalidStaff) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := svc.Create(ctx, "t1", Input{FirstName: "A", LastName: "R", Email: "a@b.test"}, &Login{Password: "Welcome2025", Role: auth.RoleSystemAdmin}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := svc.Create(ctx, "t1", Input{FirstName: "A", LastName: "R", Email: "a@b.test"}, &Login{Password: "weak"}); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
}

func TestDeactivateDisablesLogin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	member, err := svc.Create(ctx, "t1", Input{FirstName: "Ben", LastName: "Ito", Email: "ben@acme.test"}, &Login{Password: "Welcome2025", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := svc.Deactivate(ctx, "t1", member.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if out.Status != StatusInactive || store.staff[member.ID].Status != StatusInactive {
		t.Fatalf("expected inactive staff, got %+v", out)
	}
	if store.userStatus[member.UserID] != auth.UserStatusDisabled {
		t.Fatalf("expected disabled login, got %q", store.userStatus[member.UserID])
	}
	if _, err := svc.Deactivate(ctx, "t1", "missing"); !errors.Is(err, ErrStaffNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRejectsDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	first, _ := svc.Create(ctx, "t1", Input{FirstName: "A", LastName: "One", Email: "one@acme.test"}, nil)
	second, _ := svc.Create(ctx, "t1", Input{FirstName: "B", LastName: "Two", Email: "two@acme.test"}, nil)

	if _, err := svc.Update(ctx, "t1", second.ID, Input{FirstName: "B", LastName: "Two", Email: "one@acme.test"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	updated, err := svc.Update(ctx, "t1", first.ID, Input{FirstName: "A", LastName: "Uno", Email: "one@acme.test"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LastName != "Uno" {
		t.Fatalf("expected updated last name, got %+v", updated)
	}
}
