package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

// checkoutErrors maps checkout failures to the status and code the cashier
// screen switches on.
var checkoutErrors = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{checkout.ErrCartNotFound, http.StatusNotFound, "cart_not_found", "Cart not found. Check the ID and try again."},
	{checkout.ErrProductMissing, http.StatusUnprocessableEntity, "product_missing", "A product in this cart no longer exists."},
	{checkout.ErrDuplicateOrder, http.StatusConflict, "duplicate_order", "An order for this cart already exists."},
	{checkout.ErrSubmissionFailed, http.StatusBadGateway, "submission_failed", "Order could not be saved. Try again."},
	{checkout.ErrDecode, http.StatusBadRequest, "decode_error", "Scanned code is not a cart code."},
	{checkout.ErrInvalidCartID, http.StatusBadRequest, "invalid_cart_id", "Cart ID is required."},
	{checkout.ErrInvalidCart, http.StatusUnprocessableEntity, "invalid_cart", "Cart contains an invalid line."},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart", "Cart has no items."},
	{checkout.ErrNotReady, http.StatusConflict, "not_ready", "Look up a cart before submitting."},
	{checkout.ErrStaleSession, http.StatusConflict, "stale_session", "The checkout was reset while this request was running."},
	{checkout.ErrSubmitting, http.StatusConflict, "submitting", "An order submission is in progress."},
}

// toAppError converts service and checkout errors to HTTP errors.
func toAppError(err error) *apperrors.Error {
	for _, m := range checkoutErrors {
		if errors.Is(err, m.target) {
			return apperrors.New(m.status, m.code, m.message, err)
		}
	}
	var se *services.ServiceError
	if errors.As(err, &se) {
		return apperrors.New(se.StatusCode, statusCode(se.StatusCode), se.Message, nil)
	}
	return apperrors.As(err)
}

// abortWithError hands err to ErrorMiddleware.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
	c.Abort()
}

// statusCode turns 404 into "not_found".
func statusCode(status int) string {
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
