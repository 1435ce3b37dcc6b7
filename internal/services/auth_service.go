package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
)

type TokenIssuer interface {
	Issue(u core.User) (string, time.Time, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Details  string `json:"details" validate:"max=1000"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	u := core.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Details:      in.Details,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login never reveals whether the email exists: unknown users and wrong
// passwords both yield core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	ok, err := auth.CheckPassword(u.PasswordHash, in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "Stored password hash is unreadable", "user_id", u.ID, "error", err)
		return Session{}, core.ErrInvalidCredentials
	}
	if !ok {
		return Session{}, core.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *AuthService) Me(ctx context.Context, userID string) (core.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *AuthService) session(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}
