package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/pricing"
	"storefront-checkout/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	owner    = "user-1"
	stranger = "user-2"
)

type fixture struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	payment     *client.SandboxClient
	notifier    *recordingNotifier
	coupons     *pricing.CouponBook

	carts    CartService
	checkout CheckoutService
	orders   *orderServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := client.InitDBClient(config.Database{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.CloseDBClient(db) })

	f := &fixture{
		db:          db,
		cartRepo:    repository.NewCartRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		payment:     client.NewSandboxClient("http://shop.test"),
		notifier:    &recordingNotifier{},
	}
	require.NoError(t, f.productRepo.Seed(context.Background()))

	f.coupons, err = pricing.NewCouponBook(map[string]string{"WELCOME10": "10", "SAVE20": "20"})
	require.NoError(t, err)

	f.carts = NewCartService(f.cartRepo, f.productRepo, nil, f.coupons, "usd")
	f.checkout = NewCheckoutService(f.cartRepo, f.productRepo, f.payment, f.coupons, "http://shop.test/", "usd")
	f.orders = NewOrderService(db, f.orderRepo, f.cartRepo, f.payment, nil, f.notifier, 0, 0).(*orderServiceImpl)

	return f
}

func validShipping() dto.ShippingInfo {
	return dto.ShippingInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "12 Analytical Row",
		City:      "London",
		State:     "LDN",
		ZipCode:   "N1 9GU",
		Country:   "UK",
	}
}

func dtoRequest() dto.CreateCheckoutSessionRequest {
	return dto.CreateCheckoutSessionRequest{ShippingInfo: validShipping()}
}

// paidSession fills the owner's cart with two classic tees and returns a paid
// session created from it with the WELCOME10 coupon.
func (f *fixture) paidSession(t *testing.T, ownerUserID string) string {
	t.Helper()
	ctx := context.Background()

	_, err := f.carts.Add(ctx, ownerUserID, "tee-classic", 2)
	require.NoError(t, err)

	resp, err := f.checkout.CreateSession(ctx, ownerUserID, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
		CouponCode:   "welcome10",
	}, "")
	require.NoError(t, err)
	require.NoError(t, f.payment.MarkPaid(resp.SessionID))

	return resp.SessionID
}

// recordingNotifier records every attempt, including the ones it fails.
type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
	orders []dto.OrderSummary
	err    error
}

func (n *recordingNotifier) SendOrderConfirmation(_ context.Context, email string, order dto.OrderSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.orders = append(n.orders, order)
	return n.err
}

func (n *recordingNotifier) failWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}
