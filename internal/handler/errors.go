package handler

import (
	"errors"
	"net/http"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func userIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		return "", service.ErrUnauthorized
	}
	return userID, nil
}

// writeError maps service errors to a status and a stable error code.
func writeError(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context())

	status, code := http.StatusInternalServerError, "internal_error"
	message := "internal server error"
	var fields map[string]string

	var invalidShipping *service.InvalidShippingError
	var unavailable *service.ProductUnavailableError

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		status, code, message = http.StatusBadRequest, "empty_cart", "cart is empty"
	case errors.As(err, &invalidShipping):
		status, code, message = http.StatusBadRequest, "invalid_shipping", "shipping information is invalid"
		fields = invalidShipping.Fields
	case errors.As(err, &unavailable):
		status, code, message = http.StatusBadRequest, "product_unavailable", unavailable.Error()
		fields = map[string]string{unavailable.ItemID: unavailable.Reason}
	case errors.Is(err, service.ErrInvalidCoupon):
		status, code, message = http.StatusBadRequest, "invalid_coupon", "coupon code is not valid"
	case errors.Is(err, service.ErrInvalidQuantity):
		status, code, message = http.StatusBadRequest, "invalid_quantity", service.ErrInvalidQuantity.Error()
	case errors.Is(err, service.ErrInvalidCheckoutRequest):
		status, code, message = http.StatusBadRequest, "invalid_checkout_request", "checkout request was rejected"
	case errors.Is(err, service.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "unauthorized", "unauthorized"
	case errors.Is(err, service.ErrPaymentIncomplete):
		status, code, message = http.StatusPaymentRequired, "payment_incomplete", "payment has not completed"
	case errors.Is(err, service.ErrSessionNotFound):
		status, code, message = http.StatusNotFound, "session_not_found", "checkout session not found"
	case errors.Is(err, service.ErrOrderNotFinalized):
		status, code, message = http.StatusNotFound, "order_not_finalized", "order is not finalized yet"
	case errors.Is(err, service.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrCartChanged):
		status, code, message = http.StatusConflict, "cart_changed", "cart changed, review it and retry"
	case errors.Is(err, service.ErrPaymentProviderUnavailable):
		status, code, message = http.StatusBadGateway, "payment_provider_unavailable", "payment provider unavailable, retry later"
	case errors.Is(err, service.ErrStoreUnavailable):
		status, code, message = http.StatusServiceUnavailable, "store_unavailable", "service temporarily unavailable"
	}

	if status >= http.StatusInternalServerError {
		l.Error("request failed", zap.Int("status", status), zap.String("code", code), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.Int("status", status), zap.String("code", code), zap.Error(err))
	}

	return c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Fields:  fields,
	})
}
