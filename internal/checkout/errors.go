package checkout

import "errors"

var (
	ErrNotAuthenticated  = errors.New("please log in to check out")
	ErrEmptyCart         = errors.New("your cart is empty")
	ErrInvalidContact    = errors.New("name and email are required")
	ErrNoAddressSelected = errors.New("please choose a delivery address")
	ErrUnknownAddress    = errors.New("address is not one of your saved addresses")
	ErrNotInReview       = errors.New("orders can only be submitted from the review step")
	ErrSubmitting        = errors.New("order is already being submitted")
	ErrClosed            = errors.New("checkout is no longer active")
)

// Redirect returns the page a guard failure sends the visitor to, if any.
func Redirect(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "/login"
	case errors.Is(err, ErrEmptyCart):
		return "/cart"
	}
	return ""
}
