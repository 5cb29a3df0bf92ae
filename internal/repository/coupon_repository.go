package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
	"github.com/coursehub/checkout-system/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons and their course links.
// It is also the redemption ledger: Redeem is the only place applied_amount moves.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `coupon_id, user_id, is_global, type, value, start_date, end_date,
	quantity, applied_amount, min_require, max_value_discount, code, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.IsGlobal,
		&c.Type,
		&c.Value,
		&c.StartDate,
		&c.EndDate,
		&c.Quantity,
		&c.AppliedAmount,
		&c.MinRequire,
		&c.MaxValueDiscount,
		&c.Code,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon and returns its generated id.
// Returns service.ErrCouponCodeExists when the code is already taken.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) (int64, error) {
	query := `INSERT INTO coupons
		(user_id, is_global, type, value, start_date, end_date, quantity, applied_amount, min_require, max_value_discount, code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING coupon_id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		coupon.UserID, coupon.IsGlobal, coupon.Type, coupon.Value,
		coupon.StartDate, coupon.EndDate, coupon.Quantity, coupon.AppliedAmount,
		coupon.MinRequire, coupon.MaxValueDiscount, coupon.Code,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, service.ErrCouponCodeExists
		}
		return 0, fmt.Errorf("insert coupon: %w", err)
	}
	return id, nil
}

// GetByID retrieves a coupon by id, inside or outside a transaction.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE coupon_id = $1`

	coupon, err := scanCoupon(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by id %d: %w", id, err)
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its redeemable code.
// Returns nil, nil if no coupon carries the code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// ActiveCouponForCourse returns the single coupon currently running for a course.
// The active predicate is is_running AND is_accepted AND NOT is_deleted; the
// promotion flow guarantees at most one such row per course.
// Returns nil, nil when the course has no active coupon.
func (r *CouponRepository) ActiveCouponForCourse(ctx context.Context, tx database.TxQuerier, courseID int64) (*model.Coupon, error) {
	query := `SELECT c.coupon_id, c.user_id, c.is_global, c.type, c.value, c.start_date, c.end_date,
			c.quantity, c.applied_amount, c.min_require, c.max_value_discount, c.code, c.created_at
		FROM coupons c
		JOIN coupon_courses cc ON cc.coupon_id = c.coupon_id
		WHERE cc.course_id = $1 AND cc.is_running AND cc.is_accepted AND NOT cc.is_deleted`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active coupon for course %d: %w", courseID, err)
	}
	return coupon, nil
}

// Redeem increments a coupon's applied_amount by 1 inside the caller's
// transaction. The update is conditional on remaining quantity, so two
// concurrent checkouts can never push applied_amount past quantity; the loser
// sees zero rows affected and gets service.ErrCouponExhausted.
func (r *CouponRepository) Redeem(ctx context.Context, tx database.TxQuerier, couponID int64) error {
	query := `UPDATE coupons
		SET applied_amount = applied_amount + 1
		WHERE coupon_id = $1 AND applied_amount < quantity`

	tag, err := tx.Exec(ctx, query, couponID)
	if err != nil {
		return fmt.Errorf("redeem coupon %d: %w", couponID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponExhausted
	}
	return nil
}

// AttachToCourse links a coupon to a course. The link starts unaccepted and not
// running; the course owner promotes it later.
// Returns service.ErrCouponAlreadyAttached when the link already exists.
func (r *CouponRepository) AttachToCourse(ctx context.Context, couponID, courseID int64) error {
	query := `INSERT INTO coupon_courses (coupon_id, course_id, is_accepted, is_running, is_deleted)
		VALUES ($1, $2, false, false, false)`

	_, err := r.pool.Exec(ctx, query, couponID, courseID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponAlreadyAttached
		}
		return fmt.Errorf("attach coupon %d to course %d: %w", couponID, courseID, err)
	}
	return nil
}

// ResetRunning clears is_running on every coupon link of a course. Called
// inside the promotion transaction before a new link is set running, which is
// what keeps the single-active invariant.
func (r *CouponRepository) ResetRunning(ctx context.Context, tx database.TxQuerier, courseID int64) error {
	_, err := tx.Exec(ctx, `UPDATE coupon_courses SET is_running = false WHERE course_id = $1`, courseID)
	if err != nil {
		return fmt.Errorf("reset running coupons for course %d: %w", courseID, err)
	}
	return nil
}

// SetRunning marks one coupon link accepted and running.
// Returns service.ErrCouponNotAttached when the link does not exist.
func (r *CouponRepository) SetRunning(ctx context.Context, tx database.TxQuerier, couponID, courseID int64) error {
	query := `UPDATE coupon_courses
		SET is_running = true, is_accepted = true
		WHERE coupon_id = $1 AND course_id = $2 AND NOT is_deleted`

	tag, err := tx.Exec(ctx, query, couponID, courseID)
	if err != nil {
		return fmt.Errorf("set running coupon %d for course %d: %w", couponID, courseID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotAttached
	}
	return nil
}
