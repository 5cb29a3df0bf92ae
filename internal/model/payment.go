package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the durable record of one checkout. Written once inside the
// checkout transaction and never mutated after commit.
type Payment struct {
	ID            int64           `json:"paymentId"`
	UserID        int64           `json:"userId"`
	CouponID      *int64          `json:"couponId"` // cart-wide coupon, nil when none applied
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	TimePayment   time.Time       `json:"timePayment"`
}

// PaymentDetail is one purchased course within a payment. Immutable once written.
type PaymentDetail struct {
	PaymentID  int64           `json:"paymentId"`
	CourseID   int64           `json:"courseId"`
	CouponID   *int64          `json:"couponId"` // per-course coupon, nil when none applied
	Price      decimal.Decimal `json:"price"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
}

// PaymentTotals holds server-recomputed sums over a payment's detail rows.
type PaymentTotals struct {
	OriginalPrice decimal.Decimal
	TotalPrice    decimal.Decimal
}

// CheckoutItem identifies one course the client intends to buy.
type CheckoutItem struct {
	CourseID int64 `json:"courseId" validate:"required,gt=0"`
}

// CheckoutRequest is the DTO for POST /api/payments. The price fields are the
// client-computed figures; the server recomputes its own and aborts on mismatch.
type CheckoutRequest struct {
	UserID        int64           `json:"userId" validate:"required,gt=0"`
	ItemCart      []CheckoutItem  `json:"itemCart" validate:"dive"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	CouponID      *int64          `json:"couponId"`
}

// CheckoutResult is the response body for a successful checkout. Warnings carry
// post-commit fulfillment failures; the payment itself is already durable.
type CheckoutResult struct {
	Payment  *Payment        `json:"payment"`
	Details  []PaymentDetail `json:"details"`
	Warnings []string        `json:"warnings,omitempty"`
}

// PaymentFilter drives the payment-history query.
type PaymentFilter struct {
	Limit     int
	Skip      int
	UserID    *int64
	StartDate *time.Time
	EndDate   *time.Time
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
}

// PaymentDetailView is one line of the per-detail breakdown in the history API.
type PaymentDetailView struct {
	CourseID    int64           `json:"courseId"`
	CourseTitle string          `json:"courseTitle"`
	CouponID    *int64          `json:"couponId"`
	Price       decimal.Decimal `json:"price"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
}

// PaymentSummary is one payment in the history API.
type PaymentSummary struct {
	PaymentID     int64               `json:"paymentId"`
	UserID        int64               `json:"userId"`
	CouponID      *int64              `json:"couponId"`
	OriginalPrice decimal.Decimal     `json:"originalPrice"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	FinalPrice    decimal.Decimal     `json:"finalPrice"`
	TimePayment   time.Time           `json:"timePayment"`
	CourseAmount  int                 `json:"courseAmount"`
	Details       []PaymentDetailView `json:"details"`
}
