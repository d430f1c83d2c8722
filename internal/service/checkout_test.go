package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_EmptyCartNeverCallsProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.CreateSession(context.Background(), owner, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
	}, "")
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.payment.Calls())
}

func TestCheckout_EmptyCartWinsOverShipping(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.BuildSession(context.Background(), owner, nil, dto.ShippingInfo{}, SessionOptions{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_InvalidShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, owner, "tee-classic", 1)
	require.NoError(t, err)

	shipping := validShipping()
	shipping.FirstName = "   "
	shipping.Email = "not-an-email"
	shipping.ZipCode = strings.Repeat("9", 17)

	_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{ShippingInfo: shipping}, "")

	var invalid *InvalidShippingError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, map[string]string{
		"firstName": "First name is required",
		"email":     "Valid email is required",
		"zipCode":   "ZIP code must be at most 16 characters",
	}, invalid.Fields)
	assert.Zero(t, f.payment.Calls())
}

func TestCheckout_ProductUnavailable(t *testing.T) {
	tests := []struct {
		name       string
		productID  string
		quantity   int32
		wantReason string
	}{
		{name: "inactive", productID: "mug-enamel", quantity: 1, wantReason: "inactive"},
		{name: "insufficient stock", productID: "hoodie-zip", quantity: 41, wantReason: "insufficient_stock"},
		{name: "unknown product", productID: "gone", quantity: 1, wantReason: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			item, err := f.cartRepo.Add(ctx, owner, tt.productID, tt.quantity)
			require.NoError(t, err)

			_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{ShippingInfo: validShipping()}, "")

			var unavailable *ProductUnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, item.ID, unavailable.ItemID)
			assert.Equal(t, tt.wantReason, unavailable.Reason)
			assert.Zero(t, f.payment.Calls())
		})
	}
}

func TestCheckout_CartChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.carts.Add(ctx, owner, "tee-classic", 2)
	require.NoError(t, err)

	_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
		CartSnapshot: []dto.CartSnapshotItem{{ItemID: item.ID, Quantity: 1}},
	}, "")
	require.ErrorIs(t, err, ErrCartChanged)

	resp, err := f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
		CartSnapshot: []dto.CartSnapshotItem{{ItemID: item.ID, Quantity: 2}},
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
}

func TestCheckout_InvalidCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, owner, "tee-classic", 1)
	require.NoError(t, err)

	_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
		CouponCode:   "NOPE",
	}, "")
	require.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Zero(t, f.payment.Calls())
}

func TestCheckout_CreatesSessionWithMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, owner, "tee-classic", 2)
	require.NoError(t, err)

	resp, err := f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{
		ShippingInfo: validShipping(),
		CouponCode:   "welcome10",
	}, "")
	require.NoError(t, err)
	assert.Contains(t, resp.URL, resp.SessionID)

	session, err := f.payment.RetrieveCheckoutSession(ctx, resp.SessionID)
	require.NoError(t, err)

	assert.Equal(t, owner, session.Metadata[MetaUserID])
	assert.Equal(t, "WELCOME10", session.Metadata[MetaCouponCode])
	assert.Equal(t, "50.00", session.Metadata[MetaSubtotal])
	assert.Equal(t, "5.00", session.Metadata[MetaDiscount])
	assert.Equal(t, "45.00", session.Metadata[MetaTotal])
	assert.Equal(t, "ada@example.com", session.CustomerEmail)
	assert.Equal(t, int64(4500), session.AmountTotalCents)
	assert.False(t, session.Paid())

	var shipping dto.ShippingInfo
	require.NoError(t, json.Unmarshal([]byte(session.Metadata[MetaShippingInfo]), &shipping))
	assert.Equal(t, validShipping(), shipping)

	require.Len(t, session.LineItems, 1)
	assert.Equal(t, "Classic Tee", session.LineItems[0].Name)
	assert.Equal(t, int64(2), session.LineItems[0].Quantity)
	assert.Equal(t, int64(2500), session.LineItems[0].UnitAmountCents)

	// no local state until finalize
	items, err := f.cartRepo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCheckout_SnapshotPriceWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.carts.Add(ctx, owner, "tee-classic", 1)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(item).Update("unit_price_snapshot_cents", 1999).Error)

	resp, err := f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{ShippingInfo: validShipping()}, "")
	require.NoError(t, err)

	session, err := f.payment.RetrieveCheckoutSession(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, session.LineItems, 1)
	assert.Equal(t, int64(1999), session.LineItems[0].UnitAmountCents)
	assert.Equal(t, "19.99", session.Metadata[MetaTotal])
}

func TestCheckout_IdempotencyKeyReusesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, owner, "tee-classic", 1)
	require.NoError(t, err)

	req := dto.CreateCheckoutSessionRequest{ShippingInfo: validShipping()}
	first, err := f.checkout.CreateSession(ctx, owner, req, "key-1")
	require.NoError(t, err)
	second, err := f.checkout.CreateSession(ctx, owner, req, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestCheckout_ProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		failure error
		want    error
	}{
		{name: "unavailable", failure: client.ErrProviderUnavailable, want: ErrPaymentProviderUnavailable},
		{name: "rejected", failure: client.ErrProviderRejected, want: ErrInvalidCheckoutRequest},
		{name: "credentials refused", failure: fmt.Errorf("%w: %w", client.ErrProviderAuth, client.ErrProviderUnavailable), want: ErrPaymentProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.carts.Add(ctx, owner, "tee-classic", 1)
			require.NoError(t, err)

			f.payment.FailNext(tt.failure)
			_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{ShippingInfo: validShipping()}, "")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckout_ShippingTooLargeForMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, owner, "tee-classic", 1)
	require.NoError(t, err)

	shipping := validShipping()
	shipping.Address = strings.Repeat("a", 255)
	shipping.Email = strings.Repeat("b", 245) + "@x.example"
	shipping.City = strings.Repeat("c", 128)

	_, err = f.checkout.CreateSession(ctx, owner, dto.CreateCheckoutSessionRequest{ShippingInfo: shipping}, "")
	require.ErrorIs(t, err, ErrInvalidCheckoutRequest)
	assert.Zero(t, f.payment.Calls())
}
