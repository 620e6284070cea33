package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/console/repository"
)

type Profile struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PendingEmail string `json:"pendingEmail,omitempty"`
}

type ProfileUpdate struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateResult struct {
	Profile              Profile `json:"profile"`
	VerificationRequired bool    `json:"verificationRequired"`
	Message              string  `json:"message"`
}

// SettingsService lets an operator edit their own name and email. The role
// is never editable here.
type SettingsService struct {
	users    repository.UserRepo
	identity IdentityProvider
	validate *validator.Validate
	logger   *zap.Logger
}

func NewSettingsService(users repository.UserRepo, identity IdentityProvider, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{users: users, identity: identity, validate: validator.New(), logger: logger}
}

func (s *SettingsService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &Profile{Email: user.Email, Name: user.Name, Role: user.Role, PendingEmail: user.PendingEmail}, nil
}

// UpdateProfile re-authenticates with the current password, then saves the
// name. A changed email is only recorded as pending until it is verified.
func (s *SettingsService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*ProfileUpdateResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, badRequest("name, a valid email and the current password are required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, err
	}

	authID, err := s.identity.Authenticate(ctx, user.Email, in.Password)
	if errors.Is(err, ErrInvalidCredentials) || (err == nil && authID != user.ID) {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Password is incorrect"}
	}
	if err != nil {
		return nil, fmt.Errorf("re-authenticate: %w", err)
	}

	updates := map[string]interface{}{"name": in.Name}
	result := &ProfileUpdateResult{Message: "Profile updated"}
	if in.Email != strings.ToLower(user.Email) {
		updates["pendingEmail"] = in.Email
		user.PendingEmail = in.Email
		result.VerificationRequired = true
		result.Message = "Verify the new email address, then sign in again"
		s.logger.Info("email change pending verification", zap.String("user_id", userID))
	}
	if err := s.users.Update(ctx, userID, updates); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	result.Profile = Profile{Email: user.Email, Name: in.Name, Role: user.Role, PendingEmail: user.PendingEmail}
	return result, nil
}
