package model

// StripeProduct is only populated when the price's product is expanded.
type StripeProduct struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

type StripePrice struct {
	ID         string         `json:"id"`
	Currency   string         `json:"currency"`
	UnitAmount int64          `json:"unit_amount"`
	Product    *StripeProduct `json:"product"`
}

type StripeLineItem struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	AmountTotal int64       `json:"amount_total"`
	Currency    string      `json:"currency"`
	Price       StripePrice `json:"price"`
}

type StripeLineItemList struct {
	Data    []StripeLineItem `json:"data"`
	HasMore bool             `json:"has_more"`
}

type StripeCustomerDetails struct {
	Email string `json:"email"`
}

type StripeTotalDetails struct {
	AmountDiscount int64 `json:"amount_discount"`
}

type StripeCheckoutSession struct {
	ID              string                `json:"id"`
	URL             string                `json:"url"`
	Status          string                `json:"status"`         // open, complete, expired
	PaymentStatus   string                `json:"payment_status"` // paid, unpaid, no_payment_required
	Currency        string                `json:"currency"`
	AmountSubtotal  int64                 `json:"amount_subtotal"`
	AmountTotal     int64                 `json:"amount_total"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerDetails StripeCustomerDetails `json:"customer_details"`
	TotalDetails    StripeTotalDetails    `json:"total_details"`
	Metadata        map[string]string     `json:"metadata"`
	LineItems       *StripeLineItemList   `json:"line_items"`
}

type StripeErrorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
}

type StripeError struct {
	Error StripeErrorBody `json:"error"`
}
