package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/adapters/session"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Offline login always resolves to this identity.
const (
	OfflineToken    = "offline-demo-token"
	offlineUserID   = 1
	offlineMessage  = "Offline mode - dummy authentication"
	tokenTypeBearer = "bearer"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	UserID      int64  `json:"user_id"`
	Message     string `json:"message,omitempty"`
}

// Login checks credentials and issues a token. Offline mode returns a fixed demo token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if s.offline {
		return LoginResult{
			AccessToken: OfflineToken,
			TokenType:   tokenTypeBearer,
			Role:        model.RoleAdmin,
			UserID:      offlineUserID,
			Message:     offlineMessage,
		}, nil
	}
	if err := s.requireStore(); err != nil {
		return LoginResult{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, session.Session{UserID: u.ID, Role: u.Role})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info(ctx, "user logged in", logger.Int64("user_id", u.ID), logger.String("role", u.Role))
	return LoginResult{AccessToken: token, TokenType: tokenTypeBearer, Role: u.Role, UserID: u.ID}, nil
}

// Me resolves a bearer token.
func (s *Service) Me(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, ErrUnauthorized
	}
	if s.offline && token == OfflineToken {
		metrics.RecordSessionLookup("offline")
		return session.Session{UserID: offlineUserID, Role: model.RoleAdmin}, nil
	}
	// Stores count their own hits and misses.
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrUnknownToken) {
			return session.Session{}, ErrUnauthorized
		}
		return session.Session{}, fmt.Errorf("lookup token: %w", err)
	}
	return sess, nil
}

// Logout revokes a token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" || token == OfflineToken {
		return nil
	}
	return s.sessions.Revoke(ctx, token)
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Email    string
	Name     string
	Role     string
	Password string
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateUser registers a user with a hashed password.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	if !model.ValidRole(in.Role) {
		return model.User{}, ErrInvalidRole
	}
	if err := s.requireStore(); err != nil {
		return model.User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.store.CreateUser(ctx, model.User{
		Email:          in.Email,
		Name:           in.Name,
		Role:           in.Role,
		HashedPassword: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser returns ErrNotFound for unknown ids.
func (s *Service) GetUser(ctx context.Context, id int64) (model.User, error) {
	if err := s.requireStore(); err != nil {
		return model.User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SeedUser creates u unless its email is already registered. It reports whether a row was inserted.
func (s *Service) SeedUser(ctx context.Context, in NewUser) (bool, error) {
	_, err := s.CreateUser(ctx, in)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrEmailExists):
		return false, nil
	default:
		return false, err
	}
}

// DemoUsers are the accounts created by SeedDemoUsers.
var DemoUsers = []NewUser{
	{Email: "elderly1@example.com", Name: "Elder One", Role: model.RoleElderly, Password: "pass"},
	{Email: "caregiver1@example.com", Name: "Care One", Role: model.RoleCaregiver, Password: "pass"},
	{Email: "clinician1@example.com", Name: "Dr. Clin", Role: model.RoleClinician, Password: "pass"},
	{Email: "admin@example.com", Name: "Admin Root", Role: model.RoleAdmin, Password: "admin"},
}

// SeedDemoUsers inserts the missing DemoUsers and returns how many were created.
func (s *Service) SeedDemoUsers(ctx context.Context) (int, error) {
	created := 0
	for _, u := range DemoUsers {
		inserted, err := s.SeedUser(ctx, u)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		if inserted {
			created++
			s.logger.Info(ctx, "seeded user", logger.String("email", u.Email), logger.String("role", u.Role))
		}
	}
	return created, nil
}

// AckAlert marks an alert acknowledged.
func (s *Service) AckAlert(ctx context.Context, alertID int64, by string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.AckAlert(ctx, alertID, by); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: alert %d", ErrNotFound, alertID)
		}
		return fmt.Errorf("ack alert: %w", err)
	}
	metrics.RecordAlertAcknowledged()
	s.logger.Info(ctx, "alert acknowledged", logger.Int64("alert_id", alertID), logger.String("by", by))
	return nil
}
