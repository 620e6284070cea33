package services

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/advanced-supermart/console-backend/services/console/repository"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

func badRequest(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: msg}
}

const (
	DefaultPerPage = 5
	MaxPageSize    = 100
)

// ProductInput is the editable part of a catalog entry.
type ProductInput struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category" validate:"required"`
	Price    float64 `json:"price" validate:"gt=0"`
	Qty      int     `json:"qty" validate:"gt=0"`
	ImageURL string  `json:"imageURL" validate:"omitempty,url"`
}

// ProductListMeta mirrors the pagination block returned by list endpoints.
type ProductListMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// PresignedUpload describes a direct-to-bucket PUT.
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	Method    string `json:"method"`
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
	ExpiresIn int64  `json:"expires_in"`
}

// ImageStorage is satisfied by *aws.ImageStore.
type ImageStorage interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	PresignPut(ctx context.Context, name, contentType string, expires time.Duration) (string, string, string, error)
}

// ProductCache is satisfied by *repository.CacheManager.
type ProductCache interface {
	GetProductPage(ctx context.Context, page, perPage int) (*repository.ProductPage, repository.PageKey, bool)
	SetProductPageAsync(key repository.PageKey, result *repository.ProductPage)
	Invalidate(ctx context.Context) error
}

// Metrics is satisfied by *aws.MetricsClient.
type Metrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}
