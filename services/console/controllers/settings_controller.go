package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/console/middleware"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

// ProfileService is satisfied by *services.SettingsService.
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*services.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileUpdate) (*services.ProfileUpdateResult, error)
}

type SettingsController struct {
	settings ProfileService
}

func NewSettingsController(settings ProfileService) *SettingsController {
	return &SettingsController{settings: settings}
}

func (sc *SettingsController) GetProfile(c *gin.Context) {
	profile, err := sc.settings.Profile(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (sc *SettingsController) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.BadRequest("Invalid request body", nil))
		return
	}
	res, err := sc.settings.UpdateProfile(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
