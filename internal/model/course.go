package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is the slice of the course catalog the checkout engine depends on.
type Course struct {
	ID     int64           `json:"courseId"`
	UserID int64           `json:"userId"` // instructor
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}

// Lecture is one lecture of a course, ordered within its section.
type Lecture struct {
	ID        int64  `json:"lectureId"`
	SectionID int64  `json:"sectionId"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
}

// CartItem is one row of a user's cart. Transient: created on add-to-cart,
// deleted on checkout or explicit removal. Holds no price; prices are always
// derived live from the course and its active coupon.
type CartItem struct {
	UserID    int64     `json:"userId"`
	CourseID  int64     `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartItemView is a cart row with live pricing for the cart listing API.
type CartItemView struct {
	CourseID    int64           `json:"courseId"`
	CourseTitle string          `json:"courseTitle"`
	Price       decimal.Decimal `json:"price"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
	CouponID    *int64          `json:"couponId"`
}

// AddCartRequest is the DTO for adding a course to a cart.
type AddCartRequest struct {
	UserID   int64 `json:"userId" validate:"required,gt=0"`
	CourseID int64 `json:"courseId" validate:"required,gt=0"`
}

// Enrollment grants a user access to a course. Insert-only, at most once per
// (userId, courseId).
type Enrollment struct {
	UserID     int64     `json:"userId"`
	CourseID   int64     `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// StudyProgress tracks a user's progress on one lecture. Seeded by fulfillment,
// one row per lecture of a purchased course.
type StudyProgress struct {
	UserID    int64 `json:"userId"`
	LectureID int64 `json:"lectureId"`
	IsDone    bool  `json:"isDone"`
	Seconds   int   `json:"seconds"`
}

// LastLectureStudy points at the lecture a user should resume from. Seeded at
// the course's first lecture on purchase.
type LastLectureStudy struct {
	UserID    int64 `json:"userId"`
	CourseID  int64 `json:"courseId"`
	LectureID int64 `json:"lectureId"`
}
