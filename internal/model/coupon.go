package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType discriminates the two discount strategies.
type CouponType string

const (
	// CouponDiscount applies a percentage of the base price, value in (0,100].
	CouponDiscount CouponType = "discount"
	// CouponVoucher subtracts a fixed amount and requires a redeemable code.
	CouponVoucher CouponType = "voucher"
)

// Coupon represents a discount coupon. AppliedAmount never exceeds Quantity;
// the redemption update enforces that at the database level.
type Coupon struct {
	ID               int64           `json:"couponId"`
	UserID           int64           `json:"userId"`
	IsGlobal         bool            `json:"isGlobal"`
	Type             CouponType      `json:"type"`
	Value            decimal.Decimal `json:"value"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	Quantity         int             `json:"quantity"`
	AppliedAmount    int             `json:"appliedAmount"`
	MinRequire       decimal.Decimal `json:"minRequire"`
	MaxValueDiscount decimal.Decimal `json:"maxValueDiscount"`
	Code             string          `json:"code,omitempty"`
	CreatedAt        time.Time       `json:"-"`
}

// CouponCourse links a coupon to a single course. At most one row per course
// satisfies IsRunning && IsAccepted && !IsDeleted.
type CouponCourse struct {
	CouponID   int64 `json:"couponId"`
	CourseID   int64 `json:"courseId"`
	IsAccepted bool  `json:"isAccepted"`
	IsRunning  bool  `json:"isRunning"`
	IsDeleted  bool  `json:"isDeleted"`
}

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	UserID           int64           `json:"userId" validate:"required,gt=0"`
	IsGlobal         bool            `json:"isGlobal"`
	Type             CouponType      `json:"type" validate:"required,oneof=discount voucher"`
	Value            decimal.Decimal `json:"value" validate:"required"`
	StartDate        time.Time       `json:"startDate" validate:"required"`
	EndDate          time.Time       `json:"endDate" validate:"required"`
	Quantity         int             `json:"quantity" validate:"gte=0"`
	AppliedAmount    int             `json:"appliedAmount" validate:"gte=0"`
	MinRequire       decimal.Decimal `json:"minRequire"`
	MaxValueDiscount decimal.Decimal `json:"maxValueDiscount"`
	Code             string          `json:"code" validate:"omitempty,notblank,max=255"`
}

// AttachCouponRequest is the DTO for linking a coupon to a course.
type AttachCouponRequest struct {
	CouponID int64 `json:"couponId" validate:"required,gt=0"`
	CourseID int64 `json:"courseId" validate:"required,gt=0"`
}
