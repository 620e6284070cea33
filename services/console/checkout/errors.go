package checkout

import "errors"

var (
	// ErrCartNotFound means no cart exists for the identifier. The operator re-enters it.
	ErrCartNotFound = errors.New("cart not found")
	// ErrProductMissing means a cart line references a product that no longer exists.
	ErrProductMissing = errors.New("product missing from catalog")
	// ErrDuplicateOrder means an order already exists for the cart and its owner.
	ErrDuplicateOrder = errors.New("order already exists for this cart")
	// ErrSubmissionFailed wraps any backend error while writing the order.
	ErrSubmissionFailed = errors.New("order submission failed")
	// ErrDecode means a scan payload is not a JSON object with a non-empty id.
	ErrDecode = errors.New("invalid scan payload")

	ErrInvalidCartID = errors.New("cart id is required")
	ErrInvalidCart   = errors.New("cart contains an invalid line")
	ErrEmptyCart     = errors.New("cart has no items")
	ErrNotReady      = errors.New("no cart is ready for submission")
	ErrStaleSession  = errors.New("checkout session changed while the request was in flight")
	ErrSubmitting    = errors.New("an order submission is in progress")
)
