package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/coursehub/checkout-system/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// validCoupon returns a coupon redeemable at now for any price >= 0.
func validCoupon(now time.Time) *model.Coupon {
	return &model.Coupon{
		ID:               1,
		Type:             model.CouponDiscount,
		Value:            dec("10"),
		StartDate:        now.Add(-24 * time.Hour),
		EndDate:          now.Add(24 * time.Hour),
		Quantity:         100,
		AppliedAmount:    0,
		MinRequire:       decimal.Zero,
		MaxValueDiscount: dec("1000000"),
	}
}

func TestEvaluate_NilCoupon(t *testing.T) {
	quote := Evaluate(nil, dec("100000"), time.Now())

	assert.False(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.Equal(dec("100000")), "price must be unchanged")
}

func TestEvaluate_DiscountCappedByMaxValue(t *testing.T) {
	// Course price 100,000 with a 20% discount capped at 15,000:
	// saving = min(20,000, 15,000) = 15,000 -> final = 85,000.
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Value = dec("20")
	coupon.MaxValueDiscount = dec("15000")

	quote := Evaluate(coupon, dec("100000"), now)

	assert.True(t, quote.Applicable)
	assert.True(t, quote.Saving.Equal(dec("15000")), "saving should be capped at 15000, got %s", quote.Saving)
	assert.True(t, quote.FinalPrice.Equal(dec("85000")), "final price should be 85000, got %s", quote.FinalPrice)
}

func TestEvaluate_DiscountUnderCap(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Value = dec("10")
	coupon.MaxValueDiscount = dec("50000")

	quote := Evaluate(coupon, dec("200000"), now)

	assert.True(t, quote.Applicable)
	assert.True(t, quote.Saving.Equal(dec("20000")))
	assert.True(t, quote.FinalPrice.Equal(dec("180000")))
}

func TestEvaluate_VoucherBelowMinRequire(t *testing.T) {
	// Voucher worth 10,000 with a 50,000 minimum spend against a 40,000 cart:
	// not applicable, price unchanged.
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Type = model.CouponVoucher
	coupon.Value = dec("10000")
	coupon.MinRequire = dec("50000")

	quote := Evaluate(coupon, dec("40000"), now)

	assert.False(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.Equal(dec("40000")), "price must be unchanged")
}

func TestEvaluate_VoucherApplied(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Type = model.CouponVoucher
	coupon.Value = dec("30000")
	coupon.MinRequire = dec("50000")

	quote := Evaluate(coupon, dec("90000"), now)

	assert.True(t, quote.Applicable)
	assert.True(t, quote.Saving.Equal(dec("30000")))
	assert.True(t, quote.FinalPrice.Equal(dec("60000")))
}

func TestEvaluate_VoucherExceedingPriceClampsToZero(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Type = model.CouponVoucher
	coupon.Value = dec("50000")

	quote := Evaluate(coupon, dec("20000"), now)

	assert.True(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.IsZero(), "final price must clamp at zero, got %s", quote.FinalPrice)
}

func TestEvaluate_BeforeStartDate(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.StartDate = now.Add(time.Hour)

	quote := Evaluate(coupon, dec("100000"), now)

	assert.False(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.Equal(dec("100000")))
}

func TestEvaluate_AfterEndDate(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.EndDate = now.Add(-time.Hour)

	quote := Evaluate(coupon, dec("100000"), now)

	assert.False(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.Equal(dec("100000")))
}

func TestEvaluate_QuantityExhausted(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Quantity = 10
	coupon.AppliedAmount = 10

	quote := Evaluate(coupon, dec("100000"), now)

	assert.False(t, quote.Applicable, "exhausted coupon must never change the price")
	assert.True(t, quote.FinalPrice.Equal(dec("100000")))
}

func TestEvaluate_UnknownTypeIsNoOp(t *testing.T) {
	now := time.Now()
	coupon := validCoupon(now)
	coupon.Type = model.CouponType("cashback")

	quote := Evaluate(coupon, dec("100000"), now)

	assert.False(t, quote.Applicable)
	assert.True(t, quote.FinalPrice.Equal(dec("100000")))
}

func TestEvaluate_FinalPriceBounds(t *testing.T) {
	// For any coupon, final price stays within [0, basePrice].
	now := time.Now()
	prices := []string{"0", "1", "999.99", "40000", "100000", "250000"}
	coupons := []*model.Coupon{
		nil,
		validCoupon(now),
		func() *model.Coupon {
			c := validCoupon(now)
			c.Type = model.CouponVoucher
			c.Value = dec("500000")
			return c
		}(),
		func() *model.Coupon {
			c := validCoupon(now)
			c.Value = dec("100")
			return c
		}(),
	}

	for _, p := range prices {
		base := dec(p)
		for _, coupon := range coupons {
			quote := Evaluate(coupon, base, now)
			assert.False(t, quote.FinalPrice.IsNegative(), "final price negative for base %s", p)
			assert.True(t, quote.FinalPrice.LessThanOrEqual(base), "final price exceeds base %s", p)
		}
	}
}
