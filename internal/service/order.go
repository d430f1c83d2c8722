package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/notification"
	"storefront-checkout/internal/pricing"
	"storefront-checkout/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	defaultLookupTimeout = 10 * time.Second
	notifyTimeout        = 10 * time.Second

	// order numbers are random; more than one collision in a row means
	// something other than chance is wrong
	maxOrderNumberAttempts = 3
)

type OrderService interface {
	// Finalize turns a paid checkout session into an order. Calling it again
	// for the same session returns the same order.
	Finalize(ctx context.Context, ownerUserID, sessionID string) (*dto.OrderSummary, error)
	// Get never writes. A paid session without an order yields ErrOrderNotFinalized.
	Get(ctx context.Context, ownerUserID, sessionID string) (*dto.OrderSummary, error)
	List(ctx context.Context, ownerUserID string) ([]dto.OrderSummary, error)
	// Wait blocks until in-flight order confirmations have been handed off.
	Wait()
}

type orderServiceImpl struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	cartRepo      repository.CartRepository
	paymentClient client.PaymentClient
	cache         cache.CartCache
	notifier      notification.Notifier
	lookupTimeout time.Duration
	dbTimeout     time.Duration

	lookups     singleflight.Group
	pending     sync.WaitGroup
	orderNumber func() string
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	paymentClient client.PaymentClient,
	cartCache cache.CartCache,
	notifier notification.Notifier,
	lookupTimeout time.Duration,
	dbTimeout time.Duration,
) OrderService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	if notifier == nil {
		notifier = notification.LogNotifier{}
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &orderServiceImpl{
		db:            db,
		orderRepo:     orderRepo,
		cartRepo:      cartRepo,
		paymentClient: paymentClient,
		cache:         cartCache,
		notifier:      notifier,
		lookupTimeout: lookupTimeout,
		dbTimeout:     dbTimeout,
		orderNumber:   newOrderNumber,
	}
}

func (s *orderServiceImpl) Finalize(ctx context.Context, ownerUserID, sessionID string) (*dto.OrderSummary, error) {
	l := logging.FromContext(ctx).With(zap.String("session_id", sessionID), zap.String("owner", ownerUserID))

	existing, err := s.findOrder(ctx, ownerUserID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	session, err := s.retrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Metadata[MetaUserID] != ownerUserID {
		l.Warn("finalize attempted by non-owner")
		return nil, ErrUnauthorized
	}
	if !session.Paid() {
		return nil, fmt.Errorf("session %s payment status %q: %w", sessionID, session.PaymentStatus, ErrPaymentIncomplete)
	}

	var order *model.Order
	for attempt := 1; ; attempt++ {
		order = s.buildOrder(ctx, ownerUserID, session)
		err = s.materialize(ctx, ownerUserID, order)
		if !errors.Is(err, repository.ErrDuplicateOrder) {
			break
		}

		// lost the race to a concurrent finalize; the winner's row is authoritative
		winner, findErr := s.findOrder(ctx, ownerUserID, sessionID)
		if findErr != nil {
			return nil, findErr
		}
		if winner != nil {
			l.Info("order already materialized, re-reading")
			return winner, nil
		}
		// no row for this session, so the order number itself collided
		if attempt == maxOrderNumberAttempts {
			l.Error("order number collisions exhausted retries", zap.Int("attempts", attempt))
			return nil, storeError("create order", err)
		}
		l.Warn("order number collision, retrying", zap.String("order_number", order.OrderNumber))
	}
	if err != nil {
		l.Error("materialize order failed", zap.Error(err))
		return nil, storeError("create order", err)
	}

	summary := toOrderSummary(order)
	l.Info("order created", zap.String("order_number", order.OrderNumber))

	if err := s.cache.Delete(ctx, ownerUserID); err != nil {
		l.Warn("cart cache delete failed", zap.Error(err))
	}
	s.notify(ctx, order.Shipping.Email, summary)

	return &summary, nil
}

// materialize writes the order and empties the owner's cart in one transaction.
func (s *orderServiceImpl) materialize(ctx context.Context, ownerUserID string, order *model.Order) error {
	if s.dbTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dbTimeout)
		defer cancel()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return err
		}
		if err := s.cartRepo.ClearOwner(ctx, tx, ownerUserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
}

func (s *orderServiceImpl) Get(ctx context.Context, ownerUserID, sessionID string) (*dto.OrderSummary, error) {
	existing, err := s.findOrder(ctx, ownerUserID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	session, err := s.retrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Metadata[MetaUserID] != ownerUserID {
		return nil, ErrUnauthorized
	}
	if !session.Paid() {
		return nil, ErrPaymentIncomplete
	}
	return nil, ErrOrderNotFinalized
}

func (s *orderServiceImpl) List(ctx context.Context, ownerUserID string) ([]dto.OrderSummary, error) {
	orders, err := s.orderRepo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, storeError("list orders", err)
	}

	out := make([]dto.OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderSummary(o))
	}
	return out, nil
}

func (s *orderServiceImpl) Wait() {
	s.pending.Wait()
}

// findOrder returns nil, nil when no order exists for the session.
func (s *orderServiceImpl) findOrder(ctx context.Context, ownerUserID, sessionID string) (*dto.OrderSummary, error) {
	order, err := s.orderRepo.FindByProviderSessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find order", err)
	}
	if order.OwnerUserID != ownerUserID {
		return nil, ErrUnauthorized
	}

	summary := toOrderSummary(order)
	return &summary, nil
}

// retrieveSession coalesces concurrent lookups of one session id. The shared
// call is detached from any single caller's cancellation.
func (s *orderServiceImpl) retrieveSession(ctx context.Context, sessionID string) (*client.CheckoutSession, error) {
	v, err, _ := s.lookups.Do(sessionID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()
		return s.paymentClient.RetrieveCheckoutSession(lookupCtx, sessionID)
	})

	switch {
	case err == nil:
		return v.(*client.CheckoutSession), nil
	case errors.Is(err, client.ErrSessionNotFound):
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	default:
		logging.FromContext(ctx).Error("retrieve checkout session failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProviderUnavailable, err)
	}
}

func (s *orderServiceImpl) buildOrder(ctx context.Context, ownerUserID string, session *client.CheckoutSession) *model.Order {
	var shipping dto.ShippingInfo
	if raw := session.Metadata[MetaShippingInfo]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &shipping); err != nil {
			logging.FromContext(ctx).Warn("unparseable shipping metadata",
				zap.String("session_id", session.ID), zap.Error(err))
			shipping = dto.ShippingInfo{}
		}
	}
	if shipping.Email == "" {
		shipping.Email = session.CustomerEmail
	}

	items := make([]model.OrderItem, 0, len(session.LineItems))
	for _, li := range session.LineItems {
		items = append(items, model.OrderItem{
			ProductID:      li.ProductID,
			Name:           li.Name,
			Quantity:       int32(li.Quantity),
			UnitPriceCents: li.UnitAmountCents,
		})
	}

	return &model.Order{
		OrderNumber:       s.orderNumber(),
		OwnerUserID:       ownerUserID,
		ProviderSessionID: session.ID,
		Status:            model.OrderStatusPaid,
		Currency:          session.Currency,
		CouponCode:        session.Metadata[MetaCouponCode],
		SubtotalCents:     session.AmountSubtotalCents,
		DiscountCents:     session.AmountDiscountCents,
		TotalCents:        session.AmountTotalCents,
		Shipping: model.Shipping{
			FirstName: shipping.FirstName,
			LastName:  shipping.LastName,
			Email:     shipping.Email,
			Address:   shipping.Address,
			City:      shipping.City,
			State:     shipping.State,
			ZipCode:   shipping.ZipCode,
			Country:   shipping.Country,
		},
		Items: items,
	}
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// notify sends the confirmation in the background. Failures are logged only.
func (s *orderServiceImpl) notify(ctx context.Context, email string, summary dto.OrderSummary) {
	if email == "" {
		return
	}
	l := logging.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.SendOrderConfirmation(ctx, email, summary); err != nil {
			l.Error("send order confirmation failed",
				zap.String("order_number", summary.OrderNumber), zap.Error(err))
		}
	}()
}

func toOrderSummary(o *model.Order) dto.OrderSummary {
	items := make([]dto.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: pricing.FromCents(it.UnitPriceCents).StringFixed(2),
		})
	}

	return dto.OrderSummary{
		OrderNumber: o.OrderNumber,
		SessionID:   o.ProviderSessionID,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		Currency:    o.Currency,
		CouponCode:  o.CouponCode,
		Subtotal:    pricing.FromCents(o.SubtotalCents).StringFixed(2),
		Discount:    pricing.FromCents(o.DiscountCents).StringFixed(2),
		Total:       pricing.FromCents(o.TotalCents).StringFixed(2),
		Items:       items,
		ShippingInfo: dto.ShippingInfo{
			FirstName: o.Shipping.FirstName,
			LastName:  o.Shipping.LastName,
			Email:     o.Shipping.Email,
			Address:   o.Shipping.Address,
			City:      o.Shipping.City,
			State:     o.Shipping.State,
			ZipCode:   o.Shipping.ZipCode,
			Country:   o.Shipping.Country,
		},
	}
}
