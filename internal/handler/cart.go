package handler

import (
	"net/http"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.cartService.View(ctx, userID, c.QueryParam("coupon"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "cart.add"))

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "productId is required")
	}

	item, err := h.cartService.Add(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	l.Info("cart item added", zap.String("item_id", item.ID), zap.Int32("quantity", item.Quantity))
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := h.cartService.SetQuantity(ctx, userID, c.Param("itemId"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.cartService.Remove(ctx, userID, c.Param("itemId")); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ApplyCoupon validates the code and returns the repriced cart. The coupon
// is not stored; clients send it again at checkout.
func (h *CartHandler) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return writeError(c, service.ErrInvalidCoupon)
	}

	view, err := h.cartService.View(ctx, userID, req.Code)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, view)
}
