package repository

import (
	"context"
	"fmt"
	"time"

	"storefront-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Add(ctx context.Context, ownerUserID, productID string, quantity int32) (*model.CartItem, error)
	FindByID(ctx context.Context, itemID string) (*model.CartItem, error)
	SetQuantity(ctx context.Context, ownerUserID, itemID string, quantity int32) (*model.CartItem, error)
	Remove(ctx context.Context, ownerUserID, itemID string) error
	ListByOwner(ctx context.Context, ownerUserID string) ([]*model.CartItem, error)
	ClearOwner(ctx context.Context, tx *gorm.DB, ownerUserID string) error
}

type cartRepoImpl struct {
	options
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB, opts ...Option) CartRepository {
	return &cartRepoImpl{
		options: newOptions(opts),
		db:      db,
	}
}

// Add inserts the (owner, product) pair or adds quantity to the existing row.
func (r *cartRepoImpl) Add(ctx context.Context, ownerUserID, productID string, quantity int32) (*model.CartItem, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item := &model.CartItem{
		OwnerUserID: ownerUserID,
		ProductID:   productID,
		Quantity:    quantity,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	var stored model.CartItem
	err = r.db.WithContext(ctx).
		Where("owner_user_id = ? AND product_id = ?", ownerUserID, productID).
		First(&stored).Error
	if err != nil {
		return nil, notFound(err)
	}

	return &stored, nil
}

func (r *cartRepoImpl) FindByID(ctx context.Context, itemID string) (*model.CartItem, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}

	return &item, nil
}

func (r *cartRepoImpl) SetQuantity(ctx context.Context, ownerUserID, itemID string, quantity int32) (*model.CartItem, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND owner_user_id = ?", itemID, ownerUserID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, itemID)
}

func (r *cartRepoImpl) Remove(ctx context.Context, ownerUserID, itemID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", itemID, ownerUserID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cartRepoImpl) ListByOwner(ctx context.Context, ownerUserID string) ([]*model.CartItem, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var items []*model.CartItem

	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *cartRepoImpl) ClearOwner(ctx context.Context, tx *gorm.DB, ownerUserID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return tx.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Delete(&model.CartItem{}).Error
}
