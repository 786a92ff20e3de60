package service

import "errors"

// The text of each sentinel is what the end user sees in a notice.
var (
	ErrOutOfStock    = errors.New("requested quantity is out of stock")
	ErrAddProduct    = errors.New("failed to add product")
	ErrRemoveProduct = errors.New("failed to remove product")
	ErrUpdateAmount  = errors.New("failed to update product amount")
	ErrClearCart     = errors.New("failed to clear cart")
	ErrItemNotFound  = errors.New("product is not in the cart")
)

// UserMessage picks the user-facing text for an operation error.
func UserMessage(err error) string {
	for _, sentinel := range []error{ErrOutOfStock, ErrAddProduct, ErrRemoveProduct, ErrUpdateAmount, ErrClearCart} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
