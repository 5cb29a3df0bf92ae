package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/pkg/database"
)

// CouponRepositoryInterface defines the coupon lifecycle data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) (int64, error)
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	AttachToCourse(ctx context.Context, couponID, courseID int64) error
	ResetRunning(ctx context.Context, tx database.TxQuerier, courseID int64) error
	SetRunning(ctx context.Context, tx database.TxQuerier, couponID, courseID int64) error
}

var maxDiscountPercent = decimal.NewFromInt(100)

// CouponService provides business logic for the coupon lifecycle: creation
// with validation, lookup by code, and linking/promoting coupons on courses.
type CouponService struct {
	pool TxBeginner
	db   database.TxQuerier
	repo CouponRepositoryInterface
}

// NewCouponService creates a new CouponService with the given pool and repository.
func NewCouponService(pool *pgxpool.Pool, repo CouponRepositoryInterface) *CouponService {
	return &CouponService{pool: pool, db: pool, repo: repo}
}

// NewCouponServiceWithTxBeginner creates a CouponService with custom database
// handles. Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, db database.TxQuerier, repo CouponRepositoryInterface) *CouponService {
	return &CouponService{pool: pool, db: db, repo: repo}
}

// Create validates and persists a new coupon.
// Returns ErrInvalidRequest (wrapped with the violated rule) for bad data and
// ErrCouponCodeExists for a duplicate code.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := validateCouponRequest(req); err != nil {
		return nil, err
	}

	if req.Code != "" {
		existing, err := s.repo.GetByCode(ctx, req.Code)
		if err != nil {
			return nil, fmt.Errorf("check coupon code: %w", err)
		}
		if existing != nil {
			return nil, ErrCouponCodeExists
		}
	}

	coupon := &model.Coupon{
		UserID:           req.UserID,
		IsGlobal:         req.IsGlobal,
		Type:             req.Type,
		Value:            req.Value,
		StartDate:        req.StartDate,
		EndDate:          endOfDay(req.EndDate),
		Quantity:         req.Quantity,
		AppliedAmount:    req.AppliedAmount,
		MinRequire:       req.MinRequire,
		MaxValueDiscount: req.MaxValueDiscount,
		Code:             req.Code,
	}

	id, err := s.repo.Insert(ctx, coupon)
	if err != nil {
		return nil, err
	}
	coupon.ID = id
	return coupon, nil
}

func validateCouponRequest(req *model.CreateCouponRequest) error {
	if req.StartDate.After(req.EndDate) {
		return fmt.Errorf("%w: startDate cannot be after endDate", ErrInvalidRequest)
	}
	if req.AppliedAmount > req.Quantity {
		return fmt.Errorf("%w: appliedAmount cannot exceed quantity", ErrInvalidRequest)
	}
	if req.MinRequire.IsNegative() || req.MaxValueDiscount.IsNegative() {
		return fmt.Errorf("%w: minRequire and maxValueDiscount must be non-negative", ErrInvalidRequest)
	}
	switch req.Type {
	case model.CouponDiscount:
		if req.Value.LessThanOrEqual(decimal.Zero) || req.Value.GreaterThan(maxDiscountPercent) {
			return fmt.Errorf("%w: discount value must be in (0,100]", ErrInvalidRequest)
		}
	case model.CouponVoucher:
		if req.Code == "" {
			return fmt.Errorf("%w: voucher requires a code", ErrInvalidRequest)
		}
		if req.Value.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: voucher value must be positive", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown coupon type %q", ErrInvalidRequest, req.Type)
	}
	return nil
}

// endOfDay pushes a coupon's expiry to the last second of its end date, so a
// coupon "ending June 3rd" is redeemable through the whole day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// GetByCode retrieves a coupon by its redeemable code.
// Returns ErrCouponNotFound if no coupon carries the code.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// AttachToCourse links a coupon to a course. The link starts unaccepted and
// not running until the course owner promotes it.
// Returns ErrCouponNotFound for an unknown coupon and ErrCouponAlreadyAttached
// for an existing link.
func (s *CouponService) AttachToCourse(ctx context.Context, couponID, courseID int64) error {
	coupon, err := s.repo.GetByID(ctx, s.db, couponID)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.repo.AttachToCourse(ctx, couponID, courseID)
}

// PromoteRunning makes one coupon the active discount of a course. The reset
// of every other link and the promotion happen in one transaction, keeping the
// at-most-one-active invariant.
// Returns ErrCouponNotAttached when the coupon is not linked to the course.
func (s *CouponService) PromoteRunning(ctx context.Context, couponID, courseID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.repo.ResetRunning(ctx, tx, courseID); err != nil {
		return fmt.Errorf("reset running: %w", err)
	}
	if err := s.repo.SetRunning(ctx, tx, couponID, courseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
