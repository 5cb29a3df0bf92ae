package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
)

// mockRow implements pgx.Row for testing QueryRow paths.
type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockPool implements PoolInterface for testing.
type mockPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return nil, nil
}

func TestCouponRepository_Insert_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any

	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int64)) = 9
				return nil
			}}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)
	coupon := &model.Coupon{
		UserID:    1,
		Type:      model.CouponVoucher,
		Value:     decimal.RequireFromString("10000"),
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 7),
		Quantity:  100,
		Code:      "WELCOME10K",
	}

	id, err := repo.Insert(context.Background(), coupon)

	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Contains(t, capturedSQL, "INSERT INTO coupons")
	assert.Contains(t, capturedSQL, "RETURNING coupon_id")
	assert.Equal(t, int64(1), capturedArgs[0])
	assert.Equal(t, "WELCOME10K", capturedArgs[10])
}

func TestCouponRepository_Insert_DuplicateCode(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				// Simulate PostgreSQL unique violation error (code 23505)
				return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
			}}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	_, err := repo.Insert(context.Background(), &model.Coupon{Code: "WELCOME10K"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrCouponCodeExists), "should return ErrCouponCodeExists for duplicate")
}

func TestCouponRepository_Insert_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return dbErr }}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	_, err := repo.Insert(context.Background(), &model.Coupon{})

	require.Error(t, err)
	assert.False(t, errors.Is(err, service.ErrCouponCodeExists))
	assert.Contains(t, err.Error(), "insert coupon")
	assert.True(t, errors.Is(err, dbErr), "should wrap original error")
}

func TestCouponRepository_GetByID_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	coupon, err := repo.GetByID(context.Background(), mock, 99)

	require.NoError(t, err, "not found is nil, nil, not an error")
	assert.Nil(t, coupon)
}

func TestCouponRepository_ActiveCouponForCourse_NoneRunning(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	coupon, err := repo.ActiveCouponForCourse(context.Background(), mock, 10)

	require.NoError(t, err)
	assert.Nil(t, coupon)
	assert.Contains(t, capturedSQL, "cc.is_running AND cc.is_accepted AND NOT cc.is_deleted")
}

func TestCouponRepository_Redeem_Success(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	err := repo.Redeem(context.Background(), mock, 5)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "applied_amount = applied_amount + 1")
	assert.Contains(t, capturedSQL, "applied_amount < quantity",
		"redemption must be conditional on remaining quantity")
}

func TestCouponRepository_Redeem_Exhausted(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			// Zero rows affected: the quota is already fully consumed.
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	err := repo.Redeem(context.Background(), mock, 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrCouponExhausted))
}

func TestCouponRepository_AttachToCourse_AlreadyAttached(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	err := repo.AttachToCourse(context.Background(), 5, 10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrCouponAlreadyAttached))
}

func TestCouponRepository_SetRunning_NotAttached(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewCouponRepositoryWithPool(mock)

	err := repo.SetRunning(context.Background(), mock, 5, 10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrCouponNotAttached))
}
