package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

const ProductsCollection = "products"

type ProductRepository struct {
	store docstore.Store
}

func NewProductRepository(store docstore.Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func decodeProduct(doc docstore.Document) (*models.Product, error) {
	var p models.Product
	if err := doc.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", doc.ID(), err)
	}
	p.ID = doc.ID()
	return &p, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	doc, err := r.store.Get(ctx, ProductsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeProduct(doc)
}

func (r *ProductRepository) List(ctx context.Context, limit, skip int) ([]models.Product, int64, error) {
	docs, total, err := r.store.List(ctx, ProductsCollection, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProduct(doc)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, nil
}

// Create inserts the product and sets its generated id.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = ""
	id, err := r.store.Insert(ctx, ProductsCollection, product)
	if err != nil {
		return err
	}
	product.ID = id
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	err := r.store.Update(ctx, ProductsCollection, id, updates)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, ProductsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
