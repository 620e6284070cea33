package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error is an application error that knows its HTTP status.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, "bad_request", message, err)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "unauthorized", message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "forbidden", message, nil)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, "not_found", message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", "Internal server error", err)
}

// As extracts an *Error from err, wrapping anything else as an internal error.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Abort records err on the context and stops the chain with the same JSON
// body ErrorMiddleware writes, for handlers that must respond before it runs.
func Abort(c *gin.Context, err *Error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.Status, err)
}

// ErrorMiddleware renders the last error attached with c.Error as JSON.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := As(c.Errors.Last().Err)
		if appErr.Status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("code", appErr.Code),
				zap.Error(appErr.Err),
			)
		}
		c.AbortWithStatusJSON(appErr.Status, appErr)
	}
}
