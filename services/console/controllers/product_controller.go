package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

const (
	DefaultContextTimeout = 30 * time.Second
	MaxUploadSize         = 10 << 20
)

// CatalogService is satisfied by *services.ProductService.
type CatalogService interface {
	ListProducts(ctx context.Context, page, perPage int) ([]models.Product, services.ProductListMeta, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, in services.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, in services.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	PresignImageUpload(ctx context.Context, filename, contentType string, expiresSeconds int64) (*services.PresignedUpload, error)
}

type ProductController struct {
	products CatalogService
	timeout  time.Duration
}

func NewProductController(products CatalogService) *ProductController {
	return &ProductController{products: products, timeout: DefaultContextTimeout}
}

func (pc *ProductController) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), pc.timeout)
}

// GetProducts lists the catalog. page defaults to 1 and perPage to 5.
func (pc *ProductController) GetProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		apperrors.Abort(c, apperrors.BadRequest("invalid page number", nil))
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", strconv.Itoa(services.DefaultPerPage)))
	if err != nil || perPage < 1 {
		apperrors.Abort(c, apperrors.BadRequest("invalid page size", nil))
		return
	}

	ctx, cancel := pc.ctx(c)
	defer cancel()
	products, meta, err := pc.products.ListProducts(ctx, page, perPage)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "meta": meta})
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	ctx, cancel := pc.ctx(c)
	defer cancel()
	p, err := pc.products.GetProduct(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperrors.Abort(c, apperrors.BadRequest("Invalid request body", nil))
		return
	}
	ctx, cancel := pc.ctx(c)
	defer cancel()
	p, err := pc.products.CreateProduct(ctx, in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperrors.Abort(c, apperrors.BadRequest("Invalid request body", nil))
		return
	}
	ctx, cancel := pc.ctx(c)
	defer cancel()
	p, err := pc.products.UpdateProduct(ctx, c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	ctx, cancel := pc.ctx(c)
	defer cancel()
	if err := pc.products.DeleteProduct(ctx, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// UploadImage accepts a multipart "image" file and returns its public URL.
func (pc *ProductController) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	fh, err := c.FormFile("image")
	if err != nil {
		apperrors.Abort(c, apperrors.BadRequest("image file is required", nil))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperrors.Abort(c, apperrors.BadRequest("unable to read image", nil))
		return
	}
	defer f.Close()

	ctx, cancel := pc.ctx(c)
	defer cancel()
	url, err := pc.products.UploadImage(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		zap.L().Warn("Image upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imageURL": url})
}

// PresignUpload returns a presigned PUT for a direct browser upload.
func (pc *ProductController) PresignUpload(c *gin.Context) {
	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		apperrors.Abort(c, apperrors.BadRequest("filename query parameter is required", nil))
		return
	}
	contentType := c.DefaultQuery("content_type", "image/jpeg")
	expires, err := strconv.ParseInt(c.DefaultQuery("expires", "900"), 10, 64)
	if err != nil {
		expires = 0
	}

	ctx, cancel := pc.ctx(c)
	defer cancel()
	up, err := pc.products.PresignImageUpload(ctx, filename, contentType, expires)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}
