package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

type fakeCatalog struct {
	lastPage, lastPerPage int
	created               services.ProductInput
	createErr             error
	uploadedType          string
	presignExpires        int64
}

func (f *fakeCatalog) ListProducts(_ context.Context, page, perPage int) ([]models.Product, services.ProductListMeta, error) {
	f.lastPage, f.lastPerPage = page, perPage
	return []models.Product{{ID: "p1", Name: "Milk"}}, services.ProductListMeta{Page: page, PerPage: perPage, Total: 1, TotalPages: 1}, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if id != "p1" {
		return nil, &services.ServiceError{StatusCode: http.StatusNotFound, Message: "Product not found"}
	}
	return &models.Product{ID: "p1", Name: "Milk"}, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, in services.ProductInput) (*models.Product, error) {
	f.created = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Product{ID: "new", Name: in.Name, Category: in.Category, Price: in.Price, Qty: in.Qty}, nil
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, id string, in services.ProductInput) (*models.Product, error) {
	return &models.Product{ID: id, Name: in.Name}, nil
}

func (f *fakeCatalog) DeleteProduct(context.Context, string) error { return nil }

func (f *fakeCatalog) UploadImage(_ context.Context, filename, contentType string, _ io.Reader) (string, error) {
	f.uploadedType = contentType
	return "https://cdn.test/products/" + filename, nil
}

func (f *fakeCatalog) PresignImageUpload(_ context.Context, filename, _ string, expires int64) (*services.PresignedUpload, error) {
	f.presignExpires = expires
	return &services.PresignedUpload{UploadURL: "https://put", Method: "PUT", Key: "products/" + filename, ExpiresIn: 900}, nil
}

func newProductRouter(svc CatalogService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	pc := NewProductController(svc)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/products", pc.GetProducts)
	r.GET("/products/:id", pc.GetProduct)
	r.POST("/products", pc.CreateProduct)
	r.PUT("/products/:id", pc.UpdateProduct)
	r.DELETE("/products/:id", pc.DeleteProduct)
	r.POST("/products/images", pc.UploadImage)
	r.GET("/products/images/presign", pc.PresignUpload)
	return r
}

func TestGetProducts_Pagination(t *testing.T) {
	svc := &fakeCatalog{}
	r := newProductRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.lastPage)
	assert.Equal(t, services.DefaultPerPage, svc.lastPerPage)

	var body struct {
		Products []models.Product         `json:"products"`
		Meta     services.ProductListMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Products, 1)
	assert.Equal(t, int64(1), body.Meta.Total)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?page=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	w := httptest.NewRecorder()
	newProductRouter(&fakeCatalog{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/zzz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":"not_found","error":"Product not found"}`, w.Body.String())
}

func TestCreateProduct(t *testing.T) {
	svc := &fakeCatalog{}
	r := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Milk","category":"Dairy","price":2.5,"qty":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2.5, svc.created.Price)

	svc.createErr = &services.ServiceError{StatusCode: http.StatusBadRequest, Message: "invalid price"}
	req = httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Milk","category":"Dairy","price":0,"qty":3}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid price")
}

func TestUploadImage(t *testing.T) {
	svc := &fakeCatalog{}
	r := newProductRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="milk.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "image/png", svc.uploadedType)
	assert.Contains(t, w.Body.String(), "https://cdn.test/products/milk.png")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/products/images", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresignUpload(t *testing.T) {
	svc := &fakeCatalog{}
	r := newProductRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/images/presign", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/images/presign?filename=a.png&expires=120", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(120), svc.presignExpires)
	assert.Contains(t, w.Body.String(), `"method":"PUT"`)
}
