package dto

import "time"

type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type CartLine struct {
	ItemID    string `json:"itemId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int32  `json:"quantity"`
	LineTotal string `json:"lineTotal"`
	Available bool   `json:"available"`
}

type CartView struct {
	Items      []CartLine `json:"items"`
	CouponCode string     `json:"couponCode,omitempty"`
	Currency   string     `json:"currency"`
	Subtotal   string     `json:"subtotal"`
	Discount   string     `json:"discount"`
	Total      string     `json:"total"`
}

type ShippingInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// CartSnapshotItem is what the client believed the cart held when it
// submitted the checkout form.
type CartSnapshotItem struct {
	ItemID   string `json:"itemId"`
	Quantity int32  `json:"quantity"`
}

type CreateCheckoutSessionRequest struct {
	ShippingInfo ShippingInfo       `json:"shippingInfo"`
	CouponCode   string             `json:"couponCode,omitempty"`
	CartSnapshot []CartSnapshotItem `json:"cartSnapshot,omitempty"`
}

type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type OrderLine struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderSummary struct {
	OrderNumber  string       `json:"orderNumber"`
	SessionID    string       `json:"sessionId"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	Currency     string       `json:"currency"`
	CouponCode   string       `json:"couponCode,omitempty"`
	Subtotal     string       `json:"subtotal"`
	Discount     string       `json:"discount"`
	Total        string       `json:"total"`
	Items        []OrderLine  `json:"items"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
