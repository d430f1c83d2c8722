package repository

import (
	"context"

	"storefront-checkout/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByProviderSessionID(ctx context.Context, sessionID string) (*model.Order, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]*model.Order, error)
}

type orderRepoImpl struct {
	options
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB, opts ...Option) OrderRepository {
	return &orderRepoImpl{
		options: newOptions(opts),
		db:      db,
	}
}

// Create inserts the order and its items. A second order for the same
// provider session, or a reused order number, fails with ErrDuplicateOrder.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := tx.WithContext(ctx).Create(order).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	return err
}

func (r *orderRepoImpl) FindByProviderSessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("provider_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}

	return &order, nil
}

func (r *orderRepoImpl) ListByOwner(ctx context.Context, ownerUserID string) ([]*model.Order, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}
