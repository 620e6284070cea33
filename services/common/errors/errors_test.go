package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErrorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorMiddleware())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(New(http.StatusConflict, "duplicate_order", "Order already exists", nil))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(stderrors.New("db down"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		_ = c.Error(stderrors.New("ignored"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":"duplicate_order","error":"Order already exists"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"internal","error":"Internal server error"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAsUnwrapsWrapped(t *testing.T) {
	inner := NotFound("Cart not found", nil)
	wrapped := stderrors.Join(stderrors.New("context"), inner)
	assert.Same(t, inner, As(wrapped))
}

func TestAbortStopsChainWithErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reached := false
	r := gin.New()
	r.Use(ErrorMiddleware())
	r.GET("/x", func(c *gin.Context) {
		Abort(c, Forbidden("Access denied"))
	}, func(c *gin.Context) {
		reached = true
	})
	r.GET("/bad", func(c *gin.Context) {
		Abort(c, BadRequest("invalid page size", stderrors.New("strconv")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":"forbidden","error":"Access denied"}`, w.Body.String())
	assert.False(t, reached)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"bad_request","error":"invalid page size"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, Unauthorized("Missing token").Status)
}
