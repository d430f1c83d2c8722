package handler

import (
	"errors"
	"net/http"
	"strings"

	"storefront-checkout/internal/client"

	"github.com/labstack/echo/v4"
)

// SandboxHandler stands in for the provider's hosted payment page in
// development.
type SandboxHandler struct {
	sandbox *client.SandboxClient
	baseURL string
}

func NewSandboxHandler(sandbox *client.SandboxClient, baseURL string) *SandboxHandler {
	return &SandboxHandler{
		sandbox: sandbox,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Pay marks the session paid and redirects like the provider's success_url.
func (h *SandboxHandler) Pay(c echo.Context) error {
	sessionID := c.Param("id")

	err := h.sandbox.MarkPaid(sessionID)
	if errors.Is(err, client.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "checkout session not found")
	}
	if err != nil {
		return err
	}

	return c.Redirect(http.StatusFound, h.baseURL+"/order-success?session_id="+sessionID)
}
