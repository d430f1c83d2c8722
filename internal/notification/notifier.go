// Package notification dispatches order confirmations to the mailer.
package notification

import (
	"context"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"

	"go.uber.org/zap"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email string, order dto.OrderSummary) error
}

// LogNotifier only logs. Used when no brokers are configured.
type LogNotifier struct{}

func (LogNotifier) SendOrderConfirmation(ctx context.Context, email string, order dto.OrderSummary) error {
	logging.FromContext(ctx).Info("order confirmation",
		zap.String("order_number", order.OrderNumber),
		zap.String("email", email),
		zap.String("total", order.Total),
	)
	return nil
}
