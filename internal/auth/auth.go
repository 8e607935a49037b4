// Package auth issues and verifies the bearer tokens that carry the owning
// identity for every expense operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trackd/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the slice of the repository auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

type Service struct {
	store    UserStore
	secret   []byte
	ttl      time.Duration
	allowAny bool
}

// NewService builds the auth service. allowAny preserves the legacy
// accept-any-credentials login for test environments; real deployments keep
// it off so login verifies the stored password hash.
func NewService(store UserStore, secret string, ttl time.Duration, allowAny bool) *Service {
	return &Service{
		store:    store,
		secret:   []byte(secret),
		ttl:      ttl,
		allowAny: allowAny,
	}
}

// Signup registers a new user and returns a token for it. The username must
// not already exist.
func (s *Service) Signup(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", &core.ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if password == "" {
		return "", &core.ValidationError{Field: "password", Reason: "must not be empty"}
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return "", ErrUsernameTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		return "", fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, username, string(hash)); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.issue(username)
}

// Login verifies credentials and returns a token. With allowAny enabled it
// issues a token for any username without touching the store.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", &core.ValidationError{Field: "username", Reason: "must not be empty"}
	}

	if s.allowAny {
		slog.WarnContext(ctx, "Issuing token without credential verification", "username", username)
		return s.issue(username)
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issue(username)
}

// Verify checks a bearer token and returns the username it was issued for.
func (s *Service) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", ErrInvalidToken
	}

	return username, nil
}

func (s *Service) issue(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
