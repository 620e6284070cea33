package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

const UsersCollection = "users"

type UserRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

func decodeUser(doc docstore.Document) (*models.User, error) {
	var u models.User
	if err := doc.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.ID(), err)
	}
	u.ID = doc.ID()
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

// FindByEmail matches the lower-cased address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := r.store.QueryEquals(ctx, UsersCollection, docstore.Eq("email", strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return decodeUser(docs[0])
}

// Create stores u with a lower-cased email and returns the store-assigned id.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (string, error) {
	record := *u
	record.ID = ""
	record.Email = strings.ToLower(strings.TrimSpace(u.Email))
	id, err := r.store.Insert(ctx, UsersCollection, record)
	if err != nil {
		return "", fmt.Errorf("insert user %s: %w", record.Email, err)
	}
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	err := r.store.Update(ctx, UsersCollection, id, updates)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
