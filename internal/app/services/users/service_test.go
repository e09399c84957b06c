package users

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/questforge/tracker/internal/app/domain/user"
	"github.com/questforge/tracker/internal/app/services/auth"
	"github.com/questforge/tracker/internal/app/storage/memory"
	"github.com/questforge/tracker/internal/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	authService, err := auth.New(auth.Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("auth.New() error: %v", err)
	}
	return New(memory.New(), authService, nil)
}

func TestRegisterDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if result.Status != RegisterOK {
		t.Fatalf("Register() status = %q, want %q", result.Status, RegisterOK)
	}

	u := result.User
	if u.ID == "" {
		t.Error("expected an assigned id")
	}
	if u.Level != user.DefaultLevel || u.XP != user.DefaultXP || u.XPToNextLevel != user.DefaultXPToNextLevel {
		t.Errorf("got level=%d xp=%d threshold=%d, want 1/0/100", u.Level, u.XP, u.XPToNextLevel)
	}
	if u.PasswordHash == "pw1" {
		t.Error("password stored in plaintext")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}

	result, err := svc.Register(ctx, "alice", "pw2")
	if err != nil {
		t.Fatalf("second Register() error: %v", err)
	}
	if result.Status != RegisterAlreadyExists {
		t.Errorf("Register() status = %q, want %q", result.Status, RegisterAlreadyExists)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "   ", "pw"); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("blank username: error = %v, want code %s", err, errors.CodeValidation)
	}
	if _, err := svc.Register(ctx, "bob", ""); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("empty password: error = %v, want code %s", err, errors.CodeValidation)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	token, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	userID, err := svc.auth.DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken() error: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token user id = %q, want %q", userID, result.User.ID)
	}
}

// Existence is reported before the password is checked, so the two failure
// modes stay distinguishable.
func TestLoginErrorOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if _, err := svc.Login(ctx, "nobody", "pw1"); !errors.HasCode(err, errors.CodeUserNotFound) {
		t.Errorf("unknown user: error = %v, want code %s", err, errors.CodeUserNotFound)
	}
	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.HasCode(err, errors.CodeWrongPassword) {
		t.Errorf("bad password: error = %v, want code %s", err, errors.CodeWrongPassword)
	}
}

func TestSearchOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "ALbert", "bob"} {
		if _, err := svc.Register(ctx, name, "pw"); err != nil {
			t.Fatalf("Register(%q) error: %v", name, err)
		}
	}

	found, err := svc.Search(ctx, "al")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	got := make([]string, 0, len(found))
	for _, u := range found {
		got = append(got, u.Username)
	}
	want := []string{"ALbert", "alice"}
	if len(got) != len(want) {
		t.Fatalf("Search() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Search() = %v, want %v", got, want)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List() returned %d users, want 4", len(all))
	}
}

func TestGetUnknown(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Get(context.Background(), "missing"); !errors.HasCode(err, errors.CodeUserNotFound) {
		t.Errorf("Get() error = %v, want code %s", err, errors.CodeUserNotFound)
	}
}
