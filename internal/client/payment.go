package client

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable covers network failures, timeouts, 5xx and 429.
	// Callers may retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected request")
	ErrSessionNotFound     = errors.New("checkout session not found")
	// ErrProviderAuth means our credentials were refused. It is always
	// returned together with ErrProviderUnavailable.
	ErrProviderAuth = errors.New("payment provider refused credentials")
)

const PaymentStatusPaid = "paid"

type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

type LineItem struct {
	ProductID       string
	Name            string
	Quantity        int64
	UnitAmountCents int64
}

type Discount struct {
	Code       string
	PercentOff string
}

type CheckoutSessionRequest struct {
	LineItems      []LineItem
	Currency       string
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	Metadata       map[string]string
	Discount       *Discount
	IdempotencyKey string
}

type CheckoutSession struct {
	ID                  string
	URL                 string
	Status              string
	PaymentStatus       string
	Currency            string
	CustomerEmail       string
	AmountSubtotalCents int64
	AmountDiscountCents int64
	AmountTotalCents    int64
	Metadata            map[string]string
	LineItems           []LineItem
}

func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}
