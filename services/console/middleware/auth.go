package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/common/auth"
	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/common/logger"
)

const (
	ContextUserID     = "userID"
	ContextUserRole   = "role"
	ContextUserEmail  = "email"
	ContextTerminalID = "terminalID"

	AccessTokenCookie = "access_token"
	TerminalHeader    = "X-Terminal-ID"
)

// AuthMiddleware accepts a Bearer token or the access_token cookie and puts
// the caller's id, role and email on the gin context.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if tokenStr == "" {
			if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
				tokenStr = cookie
			}
		}
		if tokenStr == "" {
			apperrors.Abort(c, apperrors.Unauthorized("Missing token"))
			return
		}

		claims, err := tokens.ParseAndValidateToken(tokenStr, auth.TokenTypeAccess)
		if err != nil {
			apperrors.Abort(c, apperrors.Unauthorized("Invalid token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(ContextUserRole)] {
			logger.FromContext(c).Info("role denied",
				zap.String("user_id", c.GetString(ContextUserID)),
				zap.String("role", c.GetString(ContextUserRole)),
				zap.String("path", c.FullPath()),
			)
			apperrors.Abort(c, apperrors.Forbidden("Access denied"))
			return
		}
		c.Next()
	}
}

// TerminalID names the caller's checkout session. The X-Terminal-ID header
// only picks a till within the signed-in user's own namespace, so one
// operator cannot read or drive another operator's session.
func TerminalID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextTerminalID, TerminalKey(c.GetString(ContextUserID), c.GetHeader(TerminalHeader)))
		c.Next()
	}
}

// TerminalKey scopes terminal to userID; an empty terminal yields the user's
// default session.
func TerminalKey(userID, terminal string) string {
	key := "user:" + userID
	if terminal = strings.TrimSpace(terminal); terminal != "" {
		key += "/" + terminal
	}
	return key
}
