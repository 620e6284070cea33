package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advanced-supermart/console-backend/services/common/auth"
)

func newRouter(tokens *auth.TokenManager, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware(tokens), RequireRole(roles...), TerminalID(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":     c.GetString(ContextUserID),
			"terminal": c.GetString(ContextTerminalID),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	cashier, err := tokens.Issue(auth.Claims{UserID: "u1", Email: "a@b.c", Role: "Cashier"})
	require.NoError(t, err)
	r := newRouter(tokens, "Cashier", "admin")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":"unauthorized","error":"Missing token"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":"unauthorized","error":"Invalid token"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+cashier)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","terminal":"user:u1"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: cashier})
	req.Header.Set(TerminalHeader, "till-3")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","terminal":"user:u1/till-3"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	cashier, err := tokens.Issue(auth.Claims{UserID: "u1", Role: "Cashier"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+cashier)
	w := httptest.NewRecorder()
	newRouter(tokens, "admin").ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":"forbidden","error":"Access denied"}`, w.Body.String())
}

func TestTerminalKeyIsScopedToUser(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	r := newRouter(tokens, "Cashier")

	terminalFor := func(userID string) string {
		token, err := tokens.Issue(auth.Claims{UserID: userID, Role: "Cashier"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(TerminalHeader, " till-1 ")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body["terminal"]
	}

	assert.Equal(t, "user:u1/till-1", terminalFor("u1"))
	assert.Equal(t, "user:u2/till-1", terminalFor("u2"))
	assert.Equal(t, "user:u1", TerminalKey("u1", "  "))
}
