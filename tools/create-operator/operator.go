package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/repository"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

// operator is one console account to provision.
type operator struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required"`
	Role     string `validate:"required,oneof=admin Cashier"`
	Password string `validate:"required,min=8"`
}

var errOperatorExists = errors.New("operator already exists")

type provisioner struct {
	users    *repository.UserRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func newProvisioner(users *repository.UserRepository, logger *zap.Logger) *provisioner {
	return &provisioner{users: users, validate: validator.New(), logger: logger}
}

// provision creates op, or with resetPassword replaces the password and role
// of an existing account with the same email.
func (p *provisioner) provision(ctx context.Context, op operator, resetPassword bool) (string, error) {
	if err := p.validate.Struct(op); err != nil {
		return "", fmt.Errorf("invalid operator: %w", err)
	}
	hash, err := services.HashPassword(op.Password)
	if err != nil {
		return "", err
	}

	existing, err := p.users.FindByEmail(ctx, op.Email)
	switch {
	case err == nil && !resetPassword:
		return existing.ID, fmt.Errorf("%w: %s", errOperatorExists, op.Email)
	case err == nil:
		if err := p.users.Update(ctx, existing.ID, map[string]interface{}{
			"passwordHash": hash,
			"role":         op.Role,
		}); err != nil {
			return "", fmt.Errorf("update operator %s: %w", existing.ID, err)
		}
		p.logger.Info("operator password reset", zap.String("user_id", existing.ID), zap.String("role", op.Role))
		return existing.ID, nil
	case !errors.Is(err, repository.ErrNotFound):
		return "", fmt.Errorf("look up operator: %w", err)
	}

	id, err := p.users.Create(ctx, &models.User{
		Email:        op.Email,
		Name:         op.Name,
		Role:         op.Role,
		PasswordHash: hash,
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("operator created", zap.String("user_id", id), zap.String("role", op.Role))
	return id, nil
}
