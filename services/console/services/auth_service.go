package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/advanced-supermart/console-backend/services/common/auth"
	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/repository"
)

// ErrInvalidCredentials is returned by an IdentityProvider on a bad email or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IdentityProvider checks an email and password and returns the account id.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// BcryptIdentityProvider verifies the bcrypt hash stored on the user document.
type BcryptIdentityProvider struct {
	users repository.UserRepo
}

func NewBcryptIdentityProvider(users repository.UserRepo) *BcryptIdentityProvider {
	return &BcryptIdentityProvider{users: users}
}

func (p *BcryptIdentityProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := p.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

// HashPassword returns a bcrypt hash suitable for User.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

var roleRedirects = map[string]string{
	models.RoleAdmin:   "/ECommerce",
	models.RoleCashier: "/user/cashier",
}

// RedirectFor returns the landing page for role, or false for an unknown role.
func RedirectFor(role string) (string, bool) {
	r, ok := roleRedirects[role]
	return r, ok
}

type SignInResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

type AuthService struct {
	identity IdentityProvider
	users    repository.UserRepo
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

func NewAuthService(identity IdentityProvider, users repository.UserRepo, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{identity: identity, users: users, tokens: tokens, logger: logger}
}

// SignIn authenticates the operator, looks up their role and issues an
// access token. Only admin and Cashier accounts may sign in.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, badRequest("email and password are required")
	}

	userID, err := s.identity.Authenticate(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		s.logger.Info("sign-in rejected", zap.String("email", email))
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && user.Role == "") {
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "User role not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	redirect, ok := RedirectFor(user.Role)
	if !ok {
		s.logger.Warn("sign-in with unsupported role", zap.String("user_id", userID), zap.String("role", user.Role))
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "Invalid role"}
	}

	token, err := s.tokens.Issue(auth.Claims{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &SignInResult{Token: token, UserID: user.ID, Role: user.Role, Redirect: redirect}, nil
}
