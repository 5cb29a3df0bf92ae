package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/pricing"
	"github.com/coursehub/checkout-system/pkg/database"
)

// CartStoreInterface defines the cart data access beyond what checkout needs.
type CartStoreInterface interface {
	Add(ctx context.Context, userID, courseID int64) error
	Delete(ctx context.Context, q database.TxQuerier, userID, courseID int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.CartItem, error)
}

// CartService provides business logic for cart operations. Cart rows hold no
// price; the listing derives prices live from the course and its active coupon.
type CartService struct {
	db         database.TxQuerier
	cartRepo   CartStoreInterface
	courseRepo CourseCatalogInterface
	couponRepo CouponLedgerInterface
}

// NewCartService creates a new CartService with the given pool and repositories.
func NewCartService(pool *pgxpool.Pool, cartRepo CartStoreInterface, courseRepo CourseCatalogInterface, couponRepo CouponLedgerInterface) *CartService {
	return &CartService{db: pool, cartRepo: cartRepo, courseRepo: courseRepo, couponRepo: couponRepo}
}

// NewCartServiceWithQuerier creates a CartService with a custom querier.
// Primarily used for testing.
func NewCartServiceWithQuerier(db database.TxQuerier, cartRepo CartStoreInterface, courseRepo CourseCatalogInterface, couponRepo CouponLedgerInterface) *CartService {
	return &CartService{db: db, cartRepo: cartRepo, courseRepo: courseRepo, couponRepo: couponRepo}
}

// Add puts a course into the user's cart.
// Returns ErrCourseNotFound for an unknown course and ErrAlreadyInCart when
// the course is already there.
func (s *CartService) Add(ctx context.Context, userID, courseID int64) error {
	course, err := s.courseRepo.GetByID(ctx, s.db, courseID)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return ErrCourseNotFound
	}
	return s.cartRepo.Add(ctx, userID, courseID)
}

// Remove deletes a course from the user's cart.
func (s *CartService) Remove(ctx context.Context, userID, courseID int64) error {
	return s.cartRepo.Delete(ctx, s.db, userID, courseID)
}

// List returns the user's cart with live pricing: each row carries the current
// course price and the final price under the course's active coupon, evaluated
// now. Rows whose course disappeared are skipped.
func (s *CartService) List(ctx context.Context, userID int64) ([]model.CartItemView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	now := time.Now()
	views := make([]model.CartItemView, 0, len(items))
	for _, item := range items {
		course, err := s.courseRepo.GetByID(ctx, s.db, item.CourseID)
		if err != nil {
			return nil, fmt.Errorf("get course %d: %w", item.CourseID, err)
		}
		if course == nil {
			continue
		}

		coupon, err := s.couponRepo.ActiveCouponForCourse(ctx, s.db, item.CourseID)
		if err != nil {
			return nil, fmt.Errorf("get active coupon for course %d: %w", item.CourseID, err)
		}

		quote := pricing.Evaluate(coupon, course.Price, now)
		view := model.CartItemView{
			CourseID:    course.ID,
			CourseTitle: course.Title,
			Price:       course.Price,
			FinalPrice:  quote.FinalPrice,
		}
		if quote.Applicable {
			view.CouponID = &coupon.ID
		}
		views = append(views, view)
	}
	return views, nil
}
