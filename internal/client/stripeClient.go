package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"
)

// MaxMetadataValueLength is the provider limit for a single metadata value.
const MaxMetadataValueLength = 500

const lineItemPageSize = 100

type stripeClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

func NewStripeClient(cfg config.Payment) PaymentClient {
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseApiURL: strings.TrimRight(cfg.StripeBaseURL, "/"),
		secretKey:  cfg.StripeSecret,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, in CheckoutSessionRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", in.SuccessURL)
	form.Set("cancel_url", in.CancelURL)
	if in.CustomerEmail != "" {
		form.Set("customer_email", in.CustomerEmail)
	}
	for i, li := range in.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatInt(li.Quantity, 10))
		form.Set(prefix+"[price_data][currency]", in.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmountCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		if li.ProductID != "" {
			form.Set(prefix+"[price_data][product_data][metadata][productId]", li.ProductID)
		}
	}
	for k, v := range in.Metadata {
		if len(v) > MaxMetadataValueLength {
			return nil, fmt.Errorf("metadata %q exceeds %d chars: %w", k, MaxMetadataValueLength, ErrProviderRejected)
		}
		form.Set("metadata["+k+"]", v)
	}
	if in.Discount != nil {
		form.Set("discounts[0][coupon]", in.Discount.Code)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if in.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", in.IdempotencyKey)
	}

	var result model.StripeCheckoutSession
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return toCheckoutSession(&result), nil
}

func (c *stripeClientImpl) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?expand[]=line_items&expand[]=line_items.data.price.product",
		c.baseApiURL,
		url.PathEscape(sessionID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	var result model.StripeCheckoutSession
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}

	// The expanded list only carries the first page.
	if result.LineItems != nil && result.LineItems.HasMore && len(result.LineItems.Data) > 0 {
		rest, err := c.listLineItems(ctx, sessionID, result.LineItems.Data[len(result.LineItems.Data)-1].ID)
		if err != nil {
			return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
		}
		result.LineItems.Data = append(result.LineItems.Data, rest...)
		result.LineItems.HasMore = false
	}

	return toCheckoutSession(&result), nil
}

func (c *stripeClientImpl) listLineItems(ctx context.Context, sessionID, startingAfter string) ([]model.StripeLineItem, error) {
	var items []model.StripeLineItem
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(lineItemPageSize))
		q.Set("starting_after", startingAfter)
		q.Add("expand[]", "data.price.product")
		endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s/line_items?%s",
			c.baseApiURL,
			url.PathEscape(sessionID),
			q.Encode(),
		)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("http new request: %w", err)
		}

		var page model.StripeLineItemList
		if err := c.do(req, &page); err != nil {
			return nil, fmt.Errorf("list line items after %s: %w", startingAfter, err)
		}
		items = append(items, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return items, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

func (c *stripeClientImpl) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStripeError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}
	return nil
}

func classifyStripeError(status int, body []byte) error {
	var se model.StripeError
	_ = json.Unmarshal(body, &se)
	msg := se.Error.Message
	if msg == "" {
		msg = string(body)
	}

	switch {
	case status == http.StatusNotFound || se.Error.Code == "resource_missing":
		return fmt.Errorf("stripe %d: %s: %w", status, msg, ErrSessionNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		se.Error.Type == "authentication_error" || se.Error.Type == "permission_error":
		return fmt.Errorf("stripe %d: %s: %w: %w", status, msg, ErrProviderAuth, ErrProviderUnavailable)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("stripe %d: %s: %w", status, msg, ErrProviderUnavailable)
	default:
		return fmt.Errorf("stripe %d: %s: %w", status, msg, ErrProviderRejected)
	}
}

func toCheckoutSession(s *model.StripeCheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                  s.ID,
		URL:                 s.URL,
		Status:              s.Status,
		PaymentStatus:       s.PaymentStatus,
		Currency:            s.Currency,
		CustomerEmail:       s.CustomerEmail,
		AmountSubtotalCents: s.AmountSubtotal,
		AmountDiscountCents: s.TotalDetails.AmountDiscount,
		AmountTotalCents:    s.AmountTotal,
		Metadata:            s.Metadata,
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			var productID string
			if li.Price.Product != nil {
				productID = li.Price.Product.Metadata["productId"]
			}
			out.LineItems = append(out.LineItems, LineItem{
				ProductID:       productID,
				Name:            li.Description,
				Quantity:        li.Quantity,
				UnitAmountCents: li.Price.UnitAmount,
			})
		}
	}
	return out
}
