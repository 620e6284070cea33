package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/repository"
)

var errNoImageStorage = &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "image storage is not configured"}

const (
	defaultPresignExpiry = 900 * time.Second
	maxPresignExpiry     = 3600 * time.Second
)

// ProductService manages the catalog the checkout prices against.
type ProductService struct {
	repo     repository.ProductRepo
	images   ImageStorage
	cache    ProductCache
	metrics  Metrics
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductService(repo repository.ProductRepo, images ImageStorage, cache ProductCache, metrics Metrics, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:     repo,
		images:   images,
		cache:    cache,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *ProductService) validateInput(in ProductInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return badRequest(fmt.Sprintf("invalid %s", strings.ToLower(verrs[0].Field())))
		}
		return badRequest("invalid product")
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error("failed to invalidate product cache", zap.Error(err))
	}
}

func (s *ProductService) count(ctx context.Context, metric string) {
	if s.metrics == nil {
		return
	}
	_ = s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "console"})
}

// ListProducts returns one page of the catalog. perPage defaults to 5 and is
// capped at 100.
func (s *ProductService) ListProducts(ctx context.Context, page, perPage int) ([]models.Product, ProductListMeta, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	var (
		result *repository.ProductPage
		key    repository.PageKey
		hit    bool
	)
	if s.cache != nil {
		result, key, hit = s.cache.GetProductPage(ctx, page, perPage)
	}
	if hit {
		s.count(ctx, awspkg.MetricCacheHits)
	} else {
		products, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
		if err != nil {
			return nil, ProductListMeta{}, fmt.Errorf("list products: %w", err)
		}
		result = &repository.ProductPage{Products: products, Total: total}
		if s.cache != nil {
			s.count(ctx, awspkg.MetricCacheMisses)
			s.cache.SetProductPageAsync(key, result)
		}
	}

	meta := ProductListMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      result.Total,
		TotalPages: int(math.Ceil(float64(result.Total) / float64(perPage))),
	}
	if result.Products == nil {
		result.Products = []models.Product{}
	}
	return result.Products, meta, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	return p, err
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price,
		Qty:      in.Qty,
		ImageURL: in.ImageURL,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	s.count(ctx, awspkg.MetricProductsCreated)
	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct replaces the editable fields. The same rules as create apply.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":     strings.TrimSpace(in.Name),
		"category": strings.TrimSpace(in.Category),
		"price":    in.Price,
		"qty":      in.Qty,
	}
	if in.ImageURL != "" {
		updates["imageURL"] = in.ImageURL
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Product not found")
		}
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	s.invalidate(ctx)
	return s.GetProduct(ctx, id)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Product not found")
		}
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

func checkImageType(contentType string) error {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return badRequest("only image uploads are allowed")
	}
	return nil
}

// UploadImage stores a product image and returns its public URL.
func (s *ProductService) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if s.images == nil {
		return "", errNoImageStorage
	}
	if err := checkImageType(contentType); err != nil {
		return "", err
	}
	if strings.TrimSpace(filename) == "" {
		return "", badRequest("filename is required")
	}
	url, err := s.images.Upload(ctx, filename, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.count(ctx, awspkg.MetricImagesUploaded)
	return url, nil
}

// PresignImageUpload returns a PUT URL for a browser upload. expiresSeconds
// defaults to 900 and is capped at 3600.
func (s *ProductService) PresignImageUpload(ctx context.Context, filename, contentType string, expiresSeconds int64) (*PresignedUpload, error) {
	if s.images == nil {
		return nil, errNoImageStorage
	}
	if err := checkImageType(contentType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(filename) == "" {
		return nil, badRequest("filename is required")
	}
	expires := time.Duration(expiresSeconds) * time.Second
	if expires <= 0 {
		expires = defaultPresignExpiry
	}
	if expires > maxPresignExpiry {
		expires = maxPresignExpiry
	}

	uploadURL, key, publicURL, err := s.images.PresignPut(ctx, filename, contentType, expires)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &PresignedUpload{
		UploadURL: uploadURL,
		Method:    "PUT",
		Key:       key,
		PublicURL: publicURL,
		ExpiresIn: int64(expires / time.Second),
	}, nil
}
