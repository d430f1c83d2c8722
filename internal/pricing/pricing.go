// Package pricing computes cart totals. Every function here is pure.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCoupon = errors.New("unknown coupon")
	ErrInvalidCoupon = errors.New("invalid coupon definition")
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart entry. UnitPrice is already resolved by the caller
// (snapshot price when present, otherwise the current product price).
type Line struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
}

func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

type Coupon struct {
	Code            string
	DiscountPercent decimal.Decimal
}

type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals returns subtotal, discount and total at full precision.
func ComputeTotals(lines []Line, coupon *Coupon) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = subtotal.Mul(coupon.DiscountPercent).Div(hundred)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}

// Rounded rounds every amount to two places for display or submission.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Discount: t.Discount.Round(2),
		Total:    t.Total.Round(2),
	}
}

// ToCents converts a major-unit amount to integer minor units, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CouponBook is the closed set of coupons the server accepts.
type CouponBook struct {
	coupons map[string]Coupon
}

// NewCouponBook builds a book from code -> percent pairs.
func NewCouponBook(defs map[string]string) (*CouponBook, error) {
	b := &CouponBook{coupons: make(map[string]Coupon, len(defs))}
	for code, pct := range defs {
		norm := normalizeCode(code)
		if norm == "" {
			return nil, fmt.Errorf("empty coupon code: %w", ErrInvalidCoupon)
		}
		p, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return nil, fmt.Errorf("coupon %s percent %q: %w", norm, pct, ErrInvalidCoupon)
		}
		if !p.IsPositive() || p.GreaterThan(hundred) {
			return nil, fmt.Errorf("coupon %s percent %s out of range: %w", norm, p, ErrInvalidCoupon)
		}
		b.coupons[norm] = Coupon{Code: norm, DiscountPercent: p}
	}
	return b, nil
}

func (b *CouponBook) Lookup(code string) (*Coupon, error) {
	c, ok := b.coupons[normalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("coupon %q: %w", code, ErrUnknownCoupon)
	}
	return &c, nil
}

func (b *CouponBook) Codes() []string {
	codes := make([]string, 0, len(b.coupons))
	for c := range b.coupons {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
