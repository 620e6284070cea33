package repository

import (
	"context"
	"errors"

	"github.com/advanced-supermart/console-backend/services/console/models"
)

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("not found")

// ProductRepo is the catalog persistence used by the product service.
type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, limit, skip int) ([]models.Product, int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// UserRepo reads and updates console accounts.
type UserRepo interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}
