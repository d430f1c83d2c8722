package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient(config.Database{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "repo.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.CloseDBClient(db) })
	return db
}

func TestCartRepository_AddUpserts(t *testing.T) {
	repo := NewCartRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.Add(ctx, "u1", "tee-classic", 2)
	require.NoError(t, err)
	second, err := repo.Add(ctx, "u1", "tee-classic", 3)
	require.NoError(t, err)
	other, err := repo.Add(ctx, "u2", "tee-classic", 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(5), second.Quantity)
	assert.NotEqual(t, first.ID, other.ID)

	items, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCartRepository_OwnerScopedMutations(t *testing.T) {
	db := newTestDB(t)
	repo := NewCartRepository(db)
	ctx := context.Background()

	item, err := repo.Add(ctx, "u1", "cap-logo", 1)
	require.NoError(t, err)

	_, err = repo.SetQuantity(ctx, "u2", item.ID, 4)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Remove(ctx, "u2", item.ID), ErrNotFound)

	updated, err := repo.SetQuantity(ctx, "u1", item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(4), updated.Quantity)

	_, err = repo.Add(ctx, "u1", "tee-classic", 1)
	require.NoError(t, err)
	require.NoError(t, repo.ClearOwner(ctx, db, "u1"))

	items, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.FindByID(ctx, item.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepository_DuplicateSession(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := func(number string) *model.Order {
		return &model.Order{
			OrderNumber:       number,
			OwnerUserID:       "u1",
			ProviderSessionID: "cs_test_1",
			Status:            model.OrderStatusPaid,
			Currency:          "usd",
			SubtotalCents:     5000,
			DiscountCents:     500,
			TotalCents:        4500,
			Items:             []model.OrderItem{{ProductID: "tee-classic", Name: "Classic Tee", Quantity: 2, UnitPriceCents: 2500}},
		}
	}

	require.NoError(t, repo.Create(ctx, db, order("ORD-20260101-AAAAAAAA")))
	err := repo.Create(ctx, db, order("ORD-20260101-BBBBBBBB"))
	require.ErrorIs(t, err, ErrDuplicateOrder)

	reused := order("ORD-20260101-AAAAAAAA")
	reused.ProviderSessionID = "cs_test_2"
	require.ErrorIs(t, repo.Create(ctx, db, reused), ErrDuplicateOrder)

	got, err := repo.FindByProviderSessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-AAAAAAAA", got.OrderNumber)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Classic Tee", got.Items[0].Name)

	_, err = repo.FindByProviderSessionID(ctx, "cs_other")
	require.ErrorIs(t, err, ErrNotFound)

	orders, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestProductRepository_SeedIsIdempotent(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx))
	require.NoError(t, repo.Seed(ctx))

	tee, err := repo.FindByID(ctx, "tee-classic")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), tee.PriceCents)
	assert.True(t, tee.Purchasable(2))

	mug, err := repo.FindByID(ctx, "mug-enamel")
	require.NoError(t, err)
	assert.False(t, mug.IsActive)

	products, err := repo.FindMany(ctx, []string{"tee-classic", "cap-logo", "missing"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQueryTimeout_BoundsStoreCalls(t *testing.T) {
	db := newTestDB(t)
	repo := NewCartRepository(db, WithQueryTimeout(50*time.Millisecond))
	ctx := context.Background()

	_, err := repo.Add(ctx, "u1", "tee-classic", 1)
	require.NoError(t, err)

	// sqlite runs with a single connection, so an open transaction starves the repo
	tx := db.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	start := time.Now()
	_, err = repo.ListByOwner(ctx, "u1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestQueryTimeout_ZeroLeavesContextAlone(t *testing.T) {
	ctx := context.Background()

	got, cancel := newOptions(nil).withTimeout(ctx)
	defer cancel()
	_, ok := got.Deadline()
	assert.False(t, ok)

	got, cancel = newOptions([]Option{WithQueryTimeout(time.Minute)}).withTimeout(ctx)
	defer cancel()
	deadline, ok := got.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
