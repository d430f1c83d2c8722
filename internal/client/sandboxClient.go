package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SandboxClient is an in-memory payment provider used for local development
// and tests. Sessions stay unpaid until MarkPaid is called.
type SandboxClient struct {
	mu       sync.RWMutex
	baseURL  string
	sessions map[string]*CheckoutSession

	failNext error // consumed by the next create or retrieve call
	calls    int
}

func NewSandboxClient(baseURL string) *SandboxClient {
	return &SandboxClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: make(map[string]*CheckoutSession),
	}
}

func (c *SandboxClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionRequest) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	for k, v := range in.Metadata {
		if len(v) > MaxMetadataValueLength {
			return nil, fmt.Errorf("metadata %q exceeds %d chars: %w", k, MaxMetadataValueLength, ErrProviderRejected)
		}
	}

	if in.IdempotencyKey != "" {
		for _, s := range c.sessions {
			if s.Metadata["_idempotencyKey"] == in.IdempotencyKey {
				return cloneSession(s), nil
			}
		}
	}

	var subtotal int64
	for _, li := range in.LineItems {
		subtotal += li.UnitAmountCents * li.Quantity
	}
	var discount int64
	if in.Discount != nil {
		pct, err := decimal.NewFromString(in.Discount.PercentOff)
		if err != nil {
			return nil, fmt.Errorf("discount percent %q: %w", in.Discount.PercentOff, ErrProviderRejected)
		}
		discount = decimal.NewFromInt(subtotal).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	id := "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	metadata := make(map[string]string, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	if in.IdempotencyKey != "" {
		metadata["_idempotencyKey"] = in.IdempotencyKey
	}

	s := &CheckoutSession{
		ID:                  id,
		URL:                 fmt.Sprintf("%s/api/sandbox/checkout/%s/pay", c.baseURL, id),
		Status:              "open",
		PaymentStatus:       "unpaid",
		Currency:            in.Currency,
		CustomerEmail:       in.CustomerEmail,
		AmountSubtotalCents: subtotal,
		AmountDiscountCents: discount,
		AmountTotalCents:    total,
		Metadata:            metadata,
		LineItems:           append([]LineItem(nil), in.LineItems...),
	}
	c.sessions[id] = s

	return cloneSession(s), nil
}

func (c *SandboxClient) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return cloneSession(s), nil
}

// MarkPaid completes the session as if the customer paid on the hosted page.
func (c *SandboxClient) MarkPaid(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	s.Status = "complete"
	s.PaymentStatus = PaymentStatusPaid
	return nil
}

func (c *SandboxClient) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// Calls returns the number of create and retrieve calls made so far.
func (c *SandboxClient) Calls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls
}

func (c *SandboxClient) takeFailure() error {
	err := c.failNext
	c.failNext = nil
	return err
}

func cloneSession(s *CheckoutSession) *CheckoutSession {
	out := *s
	out.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		if k == "_idempotencyKey" {
			continue
		}
		out.Metadata[k] = v
	}
	out.LineItems = append([]LineItem(nil), s.LineItems...)
	return &out
}
