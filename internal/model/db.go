package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          string `gorm:"primaryKey;size:64;not null"` // product sku
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"size:1024"`
	PriceCents  int64  `gorm:"not null"`
	Currency    string `gorm:"size:8;not null"`
	Stock       int32  `gorm:"not null;default:0"`
	IsActive    bool   `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Purchasable reports whether qty units can be sold right now.
func (p *Product) Purchasable(qty int32) bool {
	return p.IsActive && p.Stock >= qty
}

type CartItem struct {
	ID          string `gorm:"primaryKey;size:36;not null" json:"itemId"`
	OwnerUserID string `gorm:"size:64;not null;uniqueIndex:idx_cart_owner_product" json:"ownerUserId"`
	ProductID   string `gorm:"size:64;not null;uniqueIndex:idx_cart_owner_product" json:"productId"`
	Quantity    int32  `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	// set by server-side pricing rules only, never from client input
	UnitPriceSnapshotCents *int64    `json:"unitPriceSnapshotCents,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type OrderStatus string

const (
	OrderStatusPaid OrderStatus = "PAID"
)

type Order struct {
	ID                uint        `gorm:"primaryKey"`
	OrderNumber       string      `gorm:"size:32;uniqueIndex;not null"`
	OwnerUserID       string      `gorm:"size:64;index;not null"`
	ProviderSessionID string      `gorm:"size:255;uniqueIndex;not null"`
	Status            OrderStatus `gorm:"size:32;not null"`
	Currency          string      `gorm:"size:8;not null"`
	CouponCode        string      `gorm:"size:32"`
	SubtotalCents     int64       `gorm:"not null"`
	DiscountCents     int64       `gorm:"not null"`
	TotalCents        int64       `gorm:"not null"`
	Shipping          Shipping    `gorm:"embedded;embeddedPrefix:shipping_"`
	Items             []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time
}

type OrderItem struct {
	ID             uint   `gorm:"primaryKey"`
	OrderID        uint   `gorm:"index;not null"`
	ProductID      string `gorm:"size:64"`
	Name           string `gorm:"size:255;not null"`
	Quantity       int32  `gorm:"not null"`
	UnitPriceCents int64  `gorm:"not null"`
}

// Shipping is the snapshot of the contact form stored with an order.
type Shipping struct {
	FirstName string `gorm:"size:64"`
	LastName  string `gorm:"size:64"`
	Email     string `gorm:"size:255"`
	Address   string `gorm:"size:255"`
	City      string `gorm:"size:128"`
	State     string `gorm:"size:64"`
	ZipCode   string `gorm:"size:16"`
	Country   string `gorm:"size:64"`
}
