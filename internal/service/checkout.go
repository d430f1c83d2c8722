package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/pricing"
	"storefront-checkout/internal/repository"

	"go.uber.org/zap"
)

// Metadata keys stamped on every checkout session.
const (
	MetaUserID       = "userId"
	MetaShippingInfo = "shippingInfo"
	MetaCouponCode   = "couponCode"
	MetaSubtotal     = "subtotal"
	MetaDiscount     = "discount"
	MetaTotal        = "total"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type shippingField struct {
	key    string
	label  string
	maxLen int
	value  func(*dto.ShippingInfo) *string
}

var shippingFields = []shippingField{
	{"firstName", "First name", 64, func(s *dto.ShippingInfo) *string { return &s.FirstName }},
	{"lastName", "Last name", 64, func(s *dto.ShippingInfo) *string { return &s.LastName }},
	{"email", "Email", 255, func(s *dto.ShippingInfo) *string { return &s.Email }},
	{"address", "Address", 255, func(s *dto.ShippingInfo) *string { return &s.Address }},
	{"city", "City", 128, func(s *dto.ShippingInfo) *string { return &s.City }},
	{"state", "State", 64, func(s *dto.ShippingInfo) *string { return &s.State }},
	{"zipCode", "ZIP code", 16, func(s *dto.ShippingInfo) *string { return &s.ZipCode }},
	{"country", "Country", 64, func(s *dto.ShippingInfo) *string { return &s.Country }},
}

type SessionOptions struct {
	CouponCode     string
	CartSnapshot   []dto.CartSnapshotItem
	IdempotencyKey string
}

type CheckoutService interface {
	// CreateSession loads the owner's cart and builds a provider session from it.
	CreateSession(ctx context.Context, ownerUserID string, req dto.CreateCheckoutSessionRequest, idempotencyKey string) (*dto.CheckoutSessionResponse, error)
	BuildSession(ctx context.Context, ownerUserID string, items []*model.CartItem, shipping dto.ShippingInfo, opts SessionOptions) (*dto.CheckoutSessionResponse, error)
}

type checkoutServiceImpl struct {
	cartRepo      repository.CartRepository
	productRepo   repository.ProductRepository
	paymentClient client.PaymentClient
	coupons       *pricing.CouponBook
	baseURL       string
	currency      string
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	paymentClient client.PaymentClient,
	coupons *pricing.CouponBook,
	baseURL string,
	currency string,
) CheckoutService {
	return &checkoutServiceImpl{
		cartRepo:      cartRepo,
		productRepo:   productRepo,
		paymentClient: paymentClient,
		coupons:       coupons,
		baseURL:       strings.TrimRight(baseURL, "/"),
		currency:      currency,
	}
}

func (s *checkoutServiceImpl) CreateSession(ctx context.Context, ownerUserID string, req dto.CreateCheckoutSessionRequest, idempotencyKey string) (*dto.CheckoutSessionResponse, error) {
	items, err := s.cartRepo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, storeError("list cart items", err)
	}

	return s.BuildSession(ctx, ownerUserID, items, req.ShippingInfo, SessionOptions{
		CouponCode:     req.CouponCode,
		CartSnapshot:   req.CartSnapshot,
		IdempotencyKey: idempotencyKey,
	})
}

// BuildSession validates in a fixed order and returns the first failure.
// Nothing is written locally; the provider session is the only state created.
func (s *checkoutServiceImpl) BuildSession(ctx context.Context, ownerUserID string, items []*model.CartItem, shipping dto.ShippingInfo, opts SessionOptions) (*dto.CheckoutSessionResponse, error) {
	l := logging.FromContext(ctx).With(zap.String("owner", ownerUserID))

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	shipping = normalizeShipping(shipping)
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}

	products, err := loadProducts(ctx, s.productRepo, items)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := checkAvailable(item, products[item.ProductID]); err != nil {
			return nil, err
		}
	}

	if len(opts.CartSnapshot) > 0 && !snapshotMatches(items, opts.CartSnapshot) {
		return nil, ErrCartChanged
	}

	var coupon *pricing.Coupon
	if opts.CouponCode != "" {
		c, err := s.coupons.Lookup(opts.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
		}
		coupon = c
	}

	lines := make([]pricing.Line, 0, len(items))
	lineItems := make([]client.LineItem, 0, len(items))
	for _, item := range items {
		line := priceLine(item, products[item.ProductID])
		lines = append(lines, line)
		lineItems = append(lineItems, client.LineItem{
			ProductID:       item.ProductID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitAmountCents: pricing.ToCents(line.UnitPrice),
		})
	}
	totals := pricing.ComputeTotals(lines, coupon).Rounded()

	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping info: %w", err)
	}
	if len(shippingJSON) > client.MaxMetadataValueLength {
		return nil, fmt.Errorf("shipping info too long for session metadata: %w", ErrInvalidCheckoutRequest)
	}

	metadata := map[string]string{
		MetaUserID:       ownerUserID,
		MetaShippingInfo: string(shippingJSON),
		MetaSubtotal:     totals.Subtotal.StringFixed(2),
		MetaDiscount:     totals.Discount.StringFixed(2),
		MetaTotal:        totals.Total.StringFixed(2),
	}
	req := client.CheckoutSessionRequest{
		LineItems:      lineItems,
		Currency:       s.currency,
		SuccessURL:     s.baseURL + "/order-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.baseURL + "/cart",
		CustomerEmail:  shipping.Email,
		Metadata:       metadata,
		IdempotencyKey: opts.IdempotencyKey,
	}
	if coupon != nil {
		metadata[MetaCouponCode] = coupon.Code
		req.Discount = &client.Discount{
			Code:       coupon.Code,
			PercentOff: coupon.DiscountPercent.String(),
		}
	}

	session, err := s.paymentClient.CreateCheckoutSession(ctx, req)
	if err != nil {
		if errors.Is(err, client.ErrProviderRejected) {
			l.Warn("checkout session rejected by provider", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrInvalidCheckoutRequest, err)
		}
		l.Error("create checkout session failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProviderUnavailable, err)
	}

	l.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("total", metadata[MetaTotal]),
	)

	return &dto.CheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func normalizeShipping(in dto.ShippingInfo) dto.ShippingInfo {
	for _, f := range shippingFields {
		p := f.value(&in)
		*p = strings.TrimSpace(*p)
	}
	return in
}

// validateShipping collects every failing field rather than stopping at the first.
func validateShipping(in dto.ShippingInfo) error {
	fields := map[string]string{}
	for _, f := range shippingFields {
		v := *f.value(&in)
		switch {
		case v == "":
			fields[f.key] = f.label + " is required"
		case len(v) > f.maxLen:
			fields[f.key] = fmt.Sprintf("%s must be at most %d characters", f.label, f.maxLen)
		}
	}
	if _, failed := fields["email"]; !failed && !emailPattern.MatchString(in.Email) {
		fields["email"] = "Valid email is required"
	}

	if len(fields) > 0 {
		return &InvalidShippingError{Fields: fields}
	}
	return nil
}

func checkAvailable(item *model.CartItem, product *model.Product) error {
	unavailable := func(reason string) error {
		return &ProductUnavailableError{ItemID: item.ID, ProductID: item.ProductID, Reason: reason}
	}
	switch {
	case product == nil:
		return unavailable("not_found")
	case !product.IsActive:
		return unavailable("inactive")
	case product.Stock < item.Quantity:
		return unavailable("insufficient_stock")
	}
	return nil
}

func snapshotMatches(items []*model.CartItem, snapshot []dto.CartSnapshotItem) bool {
	if len(items) != len(snapshot) {
		return false
	}
	want := make(map[string]int32, len(snapshot))
	for _, s := range snapshot {
		want[s.ItemID] = s.Quantity
	}
	for _, item := range items {
		q, ok := want[item.ID]
		if !ok || q != item.Quantity {
			return false
		}
	}
	return true
}
