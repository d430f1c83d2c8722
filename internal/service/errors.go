package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCart                  = errors.New("cart is empty")
	ErrInvalidQuantity            = errors.New("quantity must be at least 1")
	ErrInvalidCoupon              = errors.New("invalid coupon")
	ErrCartChanged                = errors.New("cart changed since checkout started")
	ErrInvalidCheckoutRequest     = errors.New("invalid checkout request")
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
	ErrSessionNotFound            = errors.New("checkout session not found")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrPaymentIncomplete          = errors.New("payment incomplete")
	ErrOrderNotFinalized          = errors.New("order not finalized")
	ErrNotFound                   = errors.New("not found")
	ErrStoreUnavailable           = errors.New("store unavailable")
)

// InvalidShippingError lists every failing shipping field with its message.
type InvalidShippingError struct {
	Fields map[string]string
}

func (e *InvalidShippingError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid shipping info: %s", strings.Join(names, ", "))
}

type ProductUnavailableError struct {
	ItemID    string
	ProductID string
	Reason    string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s unavailable for cart item %s: %s", e.ProductID, e.ItemID, e.Reason)
}
