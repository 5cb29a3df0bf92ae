package service

import "errors"

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyCart is returned when a checkout carries no items
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCourseNotFound is returned when a referenced course does not exist
	ErrCourseNotFound = errors.New("course not found")

	// ErrCourseNotInCart is returned when a submitted item is not in the user's cart
	ErrCourseNotInCart = errors.New("course is not in cart")

	// ErrPriceMismatch is returned when server-recomputed totals differ from the client figures
	ErrPriceMismatch = errors.New("submitted prices do not match computed prices")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponExhausted is returned when a coupon's redemption quota is used up
	ErrCouponExhausted = errors.New("coupon redemption quota exhausted")

	// ErrCouponNotGlobal is returned when a per-course coupon is submitted as a cart-wide one
	ErrCouponNotGlobal = errors.New("coupon is not applicable to the whole cart")

	// ErrCouponCodeExists is returned when a coupon code is already taken
	ErrCouponCodeExists = errors.New("coupon code already exists")

	// ErrCouponAlreadyAttached is returned when a coupon is already linked to the course
	ErrCouponAlreadyAttached = errors.New("coupon already attached to course")

	// ErrCouponNotAttached is returned when promoting a coupon that is not linked to the course
	ErrCouponNotAttached = errors.New("coupon is not attached to course")

	// ErrAlreadyInCart is returned when adding a course that is already in the cart
	ErrAlreadyInCart = errors.New("course already in cart")
)
