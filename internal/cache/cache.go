package cache

import (
	"context"
	"errors"

	"storefront-checkout/internal/model"
)

var ErrCacheMiss = errors.New("cache miss")

type CartCache interface {
	Get(ctx context.Context, ownerUserID string) ([]*model.CartItem, error)
	Set(ctx context.Context, ownerUserID string, items []*model.CartItem) error
	Delete(ctx context.Context, ownerUserID string) error
}

// NoopCache is used when no redis address is configured. Every Get misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]*model.CartItem, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, string, []*model.CartItem) error { return nil }

func (NoopCache) Delete(context.Context, string) error { return nil }
