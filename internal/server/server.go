package server

import (
	"context"
	"net/http"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/handler"
	appmw "storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	JWTSecret []byte
	BaseURL   string
	// requests per second per user on checkout session creation, 0 disables
	CheckoutRateLimit float64
	// non-nil only when the sandbox provider is active
	Sandbox *client.SandboxClient
}

type Server struct {
	echo            *echo.Echo
	opts            Options
	cartHandler     *handler.CartHandler
	checkoutHandler *handler.CheckoutHandler
	orderHandler    *handler.OrderHandler
	sandboxHandler  *handler.SandboxHandler
}

func NewServer(
	logger *zap.Logger,
	cartService service.CartService,
	checkoutService service.CheckoutService,
	orderService service.OrderService,
	opts Options,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		opts:            opts,
		cartHandler:     handler.NewCartHandler(cartService),
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		orderHandler:    handler.NewOrderHandler(orderService),
	}
	if opts.Sandbox != nil {
		s.sandboxHandler = handler.NewSandboxHandler(opts.Sandbox, opts.BaseURL)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.sandboxHandler != nil {
		api.GET("/sandbox/checkout/:id/pay", s.sandboxHandler.Pay)
	}

	authed := api.Group("", appmw.AuthMiddleware(s.opts.JWTSecret))

	// -------- cart --------
	cart := authed.Group("/cart")
	cart.GET("", s.cartHandler.GetCart)
	cart.POST("/items", s.cartHandler.AddItem)
	cart.PATCH("/items/:itemId", s.cartHandler.UpdateItem)
	cart.DELETE("/items/:itemId", s.cartHandler.RemoveItem)
	cart.POST("/coupon", s.cartHandler.ApplyCoupon)

	// -------- checkout --------
	var checkoutMW []echo.MiddlewareFunc
	if s.opts.CheckoutRateLimit > 0 {
		checkoutMW = append(checkoutMW, checkoutRateLimiter(s.opts.CheckoutRateLimit))
	}
	authed.POST("/checkout/sessions", s.checkoutHandler.CreateSession, checkoutMW...)

	// -------- orders --------
	orders := authed.Group("/orders")
	orders.GET("", s.orderHandler.ListOrders)
	orders.GET("/:sessionId", s.orderHandler.GetOrder)
	orders.POST("/:sessionId/finalize", s.orderHandler.FinalizeOrder)
}

func checkoutRateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(perSecond),
			Burst: burst,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := c.Get(appmw.UserIDKey).(string); ok {
				return userID, nil
			}
			return c.RealIP(), nil
		},
	})
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
