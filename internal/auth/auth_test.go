package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackd/internal/core"
)

type fakeUserStore struct {
	users map[string]core.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]core.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	u := core.User{ID: int64(len(f.users) + 1), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	u, ok := f.users[username]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), "test-secret", time.Hour, false)

	token, err := svc.Signup(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if username, err := svc.Verify(token); err != nil || username != "alice" {
		t.Fatalf("Verify(signup token) = %q, %v", username, err)
	}

	if _, err := svc.Signup(ctx, "alice", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate signup: err = %v, want ErrUsernameTaken", err)
	}

	token, err = svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if username, err := svc.Verify(token); err != nil || username != "alice" {
		t.Errorf("Verify(login token) = %q, %v", username, err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), "test-secret", time.Hour, false)

	var verr *core.ValidationError
	if _, err := svc.Signup(ctx, "  ", "pw"); !errors.As(err, &verr) {
		t.Errorf("blank username: err = %v, want ValidationError", err)
	}
	if _, err := svc.Signup(ctx, "alice", ""); !errors.As(err, &verr) {
		t.Errorf("blank password: err = %v, want ValidationError", err)
	}
}

func TestLogin_AllowAny(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), "test-secret", time.Hour, true)

	// No signup has happened; any pair is accepted in this mode.
	token, err := svc.Login(ctx, "ghost", "anything")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if username, err := svc.Verify(token); err != nil || username != "ghost" {
		t.Errorf("Verify = %q, %v", username, err)
	}
}

func TestVerify_Failures(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), "test-secret", time.Hour, false)

	if _, err := svc.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: err = %v, want ErrInvalidToken", err)
	}

	// Token signed with a different secret must be rejected.
	other := NewService(newFakeUserStore(), "other-secret", time.Hour, false)
	token, err := other.Signup(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("cross-secret token: err = %v, want ErrInvalidToken", err)
	}

	// Expired token.
	expired := NewService(newFakeUserStore(), "test-secret", -time.Hour, false)
	token, err = expired.Signup(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: err = %v, want ErrInvalidToken", err)
	}
}
