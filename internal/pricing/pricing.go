// Package pricing evaluates a coupon against a base price. Evaluation is pure:
// it never touches storage and never mutates redemption counters.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/coursehub/checkout-system/internal/model"
)

var oneHundred = decimal.NewFromInt(100)

// Quote is the outcome of evaluating a coupon against a base price.
type Quote struct {
	Applicable bool
	Saving     decimal.Decimal
	FinalPrice decimal.Decimal
}

// Evaluate decides whether coupon is redeemable against basePrice at the given
// instant and computes the saving. Rules run in order: date window, remaining
// quantity, minimum spend, type-specific saving, max-discount cap, zero clamp.
// A nil or inapplicable coupon leaves the price unchanged.
func Evaluate(coupon *model.Coupon, basePrice decimal.Decimal, now time.Time) Quote {
	quote := Quote{FinalPrice: basePrice}
	if coupon == nil {
		return quote
	}
	if now.Before(coupon.StartDate) || now.After(coupon.EndDate) {
		return quote
	}
	if coupon.AppliedAmount >= coupon.Quantity {
		return quote
	}
	if basePrice.LessThan(coupon.MinRequire) {
		return quote
	}

	var saving decimal.Decimal
	switch coupon.Type {
	case model.CouponDiscount:
		saving = basePrice.Mul(coupon.Value).Div(oneHundred)
	case model.CouponVoucher:
		saving = coupon.Value
	default:
		return quote
	}
	if saving.GreaterThan(coupon.MaxValueDiscount) {
		saving = coupon.MaxValueDiscount
	}

	final := basePrice.Sub(saving)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Quote{Applicable: true, Saving: saving, FinalPrice: final}
}
