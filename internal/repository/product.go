package repository

import (
	"context"

	"storefront-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error)
}

type productRepoImpl struct {
	options
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB, opts ...Option) ProductRepository {
	return &productRepoImpl{
		options: newOptions(opts),
		db:      db,
	}
}

// Seed installs the development catalog. Existing rows are left untouched.
func (r *productRepoImpl) Seed(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	products := []model.Product{
		{ID: "tee-classic", Name: "Classic Tee", Description: "Heavyweight cotton t-shirt", PriceCents: 2500, Currency: "usd", Stock: 100, IsActive: true},
		{ID: "hoodie-zip", Name: "Zip Hoodie", Description: "Fleece-lined zip hoodie", PriceCents: 5900, Currency: "usd", Stock: 40, IsActive: true},
		{ID: "cap-logo", Name: "Logo Cap", Description: "Six panel embroidered cap", PriceCents: 1800, Currency: "usd", Stock: 75, IsActive: true},
		{ID: "mug-enamel", Name: "Enamel Mug", Description: "Discontinued camp mug", PriceCents: 1200, Currency: "usd", Stock: 0, IsActive: false},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, notFound(err)
	}

	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}
