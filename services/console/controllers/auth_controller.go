package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/console/middleware"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

// SignInService is satisfied by *services.AuthService.
type SignInService interface {
	SignIn(ctx context.Context, email, password string) (*services.SignInResult, error)
}

type AuthController struct {
	auth         SignInService
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthController(auth SignInService, tokenTTL time.Duration, secureCookie bool) *AuthController {
	return &AuthController{auth: auth, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignIn returns the token, role and landing page, and sets the access cookie.
func (ac *AuthController) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.BadRequest("email and password are required", nil))
		return
	}

	res, err := ac.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, res.Token, int(ac.tokenTTL.Seconds()), "/", "", ac.secureCookie, true)
	c.JSON(http.StatusOK, res)
}

func (ac *AuthController) SignOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", ac.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Me echoes the identity carried by the caller's token.
func (ac *AuthController) Me(c *gin.Context) {
	role := c.GetString(middleware.ContextUserRole)
	redirect, _ := services.RedirectFor(role)
	c.JSON(http.StatusOK, gin.H{
		"userId":   c.GetString(middleware.ContextUserID),
		"email":    c.GetString(middleware.ContextUserEmail),
		"role":     role,
		"redirect": redirect,
	})
}
