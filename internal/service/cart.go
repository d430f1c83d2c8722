package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logging"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/pricing"
	"storefront-checkout/internal/repository"

	"go.uber.org/zap"
)

type CartService interface {
	Add(ctx context.Context, ownerUserID, productID string, quantity int32) (*model.CartItem, error)
	SetQuantity(ctx context.Context, ownerUserID, itemID string, quantity int32) (*model.CartItem, error)
	Remove(ctx context.Context, ownerUserID, itemID string) error
	List(ctx context.Context, ownerUserID string) ([]*model.CartItem, error)
	View(ctx context.Context, ownerUserID, couponCode string) (*dto.CartView, error)
}

type cartServiceImpl struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cache       cache.CartCache
	coupons     *pricing.CouponBook
	currency    string
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	cartCache cache.CartCache,
	coupons *pricing.CouponBook,
	currency string,
) CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	return &cartServiceImpl{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       cartCache,
		coupons:     coupons,
		currency:    currency,
	}
}

// Add puts quantity units of the product in the owner's cart, summing with an
// existing line for the same product. Quantities below 1 are clamped to 1.
func (s *cartServiceImpl) Add(ctx context.Context, ownerUserID, productID string, quantity int32) (*model.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("find product", err)
	}
	if !product.IsActive {
		return nil, fmt.Errorf("product %s inactive: %w", productID, ErrNotFound)
	}

	item, err := s.cartRepo.Add(ctx, ownerUserID, productID, quantity)
	if err != nil {
		return nil, storeError("add cart item", err)
	}

	s.invalidate(ctx, ownerUserID)
	return item, nil
}

func (s *cartServiceImpl) SetQuantity(ctx context.Context, ownerUserID, itemID string, quantity int32) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := s.checkOwner(ctx, ownerUserID, itemID); err != nil {
		return nil, err
	}

	item, err := s.cartRepo.SetQuantity(ctx, ownerUserID, itemID, quantity)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("set cart item quantity", err)
	}

	s.invalidate(ctx, ownerUserID)
	return item, nil
}

func (s *cartServiceImpl) Remove(ctx context.Context, ownerUserID, itemID string) error {
	if err := s.checkOwner(ctx, ownerUserID, itemID); err != nil {
		return err
	}

	err := s.cartRepo.Remove(ctx, ownerUserID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return storeError("remove cart item", err)
	}

	s.invalidate(ctx, ownerUserID)
	return nil
}

// List reads through the cart cache. Cache failures fall back to the store.
func (s *cartServiceImpl) List(ctx context.Context, ownerUserID string) ([]*model.CartItem, error) {
	l := logging.FromContext(ctx)

	items, err := s.cache.Get(ctx, ownerUserID)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn("cart cache get failed", zap.String("owner", ownerUserID), zap.Error(err))
	}

	items, err = s.cartRepo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, storeError("list cart items", err)
	}

	if err := s.cache.Set(ctx, ownerUserID, items); err != nil {
		l.Warn("cart cache set failed", zap.String("owner", ownerUserID), zap.Error(err))
	}
	return items, nil
}

// View prices the cart, optionally with a coupon. An unknown coupon fails
// the whole call and leaves the cart untouched.
func (s *cartServiceImpl) View(ctx context.Context, ownerUserID, couponCode string) (*dto.CartView, error) {
	var coupon *pricing.Coupon
	if couponCode != "" {
		c, err := s.coupons.Lookup(couponCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
		}
		coupon = c
	}

	items, err := s.List(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	products, err := loadProducts(ctx, s.productRepo, items)
	if err != nil {
		return nil, err
	}

	view := &dto.CartView{
		Items:    make([]dto.CartLine, 0, len(items)),
		Currency: s.currency,
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		product := products[item.ProductID]
		line := priceLine(item, product)
		lines = append(lines, line)

		cl := dto.CartLine{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: line.Amount().StringFixed(2),
		}
		if product != nil {
			cl.Available = product.Purchasable(item.Quantity)
		}
		view.Items = append(view.Items, cl)
	}

	totals := pricing.ComputeTotals(lines, coupon).Rounded()
	if coupon != nil {
		view.CouponCode = coupon.Code
	}
	view.Subtotal = totals.Subtotal.StringFixed(2)
	view.Discount = totals.Discount.StringFixed(2)
	view.Total = totals.Total.StringFixed(2)

	return view, nil
}

// checkOwner reports a foreign item as unauthorized rather than missing.
func (s *cartServiceImpl) checkOwner(ctx context.Context, ownerUserID, itemID string) error {
	item, err := s.cartRepo.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return storeError("find cart item", err)
	}
	if item.OwnerUserID != ownerUserID {
		return fmt.Errorf("cart item %s: %w", itemID, ErrUnauthorized)
	}
	return nil
}

func (s *cartServiceImpl) invalidate(ctx context.Context, ownerUserID string) {
	if err := s.cache.Delete(ctx, ownerUserID); err != nil {
		logging.FromContext(ctx).Warn("cart cache delete failed",
			zap.String("owner", ownerUserID), zap.Error(err))
	}
}

func loadProducts(ctx context.Context, repo repository.ProductRepository, items []*model.CartItem) (map[string]*model.Product, error) {
	out := make(map[string]*model.Product, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := repo.FindMany(ctx, ids)
	if err != nil {
		return nil, storeError("find products", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// priceLine uses the item's snapshot price when set, otherwise the current
// product price. A missing product without a snapshot prices at zero.
func priceLine(item *model.CartItem, product *model.Product) pricing.Line {
	line := pricing.Line{
		ItemID:   item.ID,
		Name:     item.ProductID,
		Quantity: int64(item.Quantity),
	}
	if product != nil {
		line.Name = product.Name
		line.UnitPrice = pricing.FromCents(product.PriceCents)
	}
	if item.UnitPriceSnapshotCents != nil {
		line.UnitPrice = pricing.FromCents(*item.UnitPriceSnapshotCents)
	}
	return line
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
