package handler

import (
	"net/http"

	"storefront-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	order, err := h.orderService.Get(ctx, userID, c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

// FinalizeOrder is called by the confirmation page on return from the provider.
func (h *OrderHandler) FinalizeOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	order, err := h.orderService.Finalize(ctx, userID, c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	orders, err := h.orderService.List(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, orders)
}
