package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/pkg/database"
)

// PaymentRepository provides data access for payments and their detail rows.
// All writes happen inside one checkout transaction; the rows are never
// contended across transactions.
type PaymentRepository struct {
	pool PoolInterface
}

// NewPaymentRepository creates a new PaymentRepository with the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// NewPaymentRepositoryWithPool creates a new PaymentRepository with a custom pool interface.
// This is primarily used for testing.
func NewPaymentRepositoryWithPool(pool PoolInterface) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// InsertPayment writes the placeholder payment row at the start of a checkout
// and returns its generated id. The totals are corrected by UpdateTotals once
// the details are reconciled.
func (r *PaymentRepository) InsertPayment(ctx context.Context, tx database.TxQuerier, p *model.Payment) (int64, error) {
	query := `INSERT INTO payments (user_id, coupon_id, original_price, total_price, final_price, time_payment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING payment_id`

	var id int64
	err := tx.QueryRow(ctx, query,
		p.UserID, p.CouponID, p.OriginalPrice, p.TotalPrice, p.FinalPrice, p.TimePayment,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

// InsertDetail writes one payment detail row inside the checkout transaction.
func (r *PaymentRepository) InsertDetail(ctx context.Context, tx database.TxQuerier, d *model.PaymentDetail) error {
	query := `INSERT INTO payment_details (payment_id, course_id, coupon_id, price, final_price)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, d.PaymentID, d.CourseID, d.CouponID, d.Price, d.FinalPrice)
	if err != nil {
		return fmt.Errorf("insert payment detail for course %d: %w", d.CourseID, err)
	}
	return nil
}

// TotalsForPayment recomputes the authoritative totals from the detail rows
// written in the same transaction. This is the anti-tamper boundary: totals
// are never taken from client input.
func (r *PaymentRepository) TotalsForPayment(ctx context.Context, tx database.TxQuerier, paymentID int64) (model.PaymentTotals, error) {
	query := `SELECT COALESCE(SUM(price), 0), COALESCE(SUM(final_price), 0)
		FROM payment_details WHERE payment_id = $1`

	var totals model.PaymentTotals
	err := tx.QueryRow(ctx, query, paymentID).Scan(&totals.OriginalPrice, &totals.TotalPrice)
	if err != nil {
		return model.PaymentTotals{}, fmt.Errorf("totals for payment %d: %w", paymentID, err)
	}
	return totals, nil
}

// UpdateTotals writes the reconciled figures onto the payment row. Last write
// inside the checkout transaction; the row is immutable after commit.
func (r *PaymentRepository) UpdateTotals(ctx context.Context, tx database.TxQuerier, p *model.Payment) error {
	query := `UPDATE payments
		SET coupon_id = $2, original_price = $3, total_price = $4, final_price = $5
		WHERE payment_id = $1`

	_, err := tx.Exec(ctx, query, p.ID, p.CouponID, p.OriginalPrice, p.TotalPrice, p.FinalPrice)
	if err != nil {
		return fmt.Errorf("update payment %d totals: %w", p.ID, err)
	}
	return nil
}

// List returns paginated payment history matching the filter, newest first,
// with the per-detail price breakdown attached.
func (r *PaymentRepository) List(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentSummary, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.UserID != nil {
		add("user_id = ?", *filter.UserID)
	}
	if filter.StartDate != nil {
		add("time_payment >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("time_payment <= ?", *filter.EndDate)
	}
	if filter.MinPrice != nil {
		add("final_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("final_price <= ?", *filter.MaxPrice)
	}

	query := `SELECT payment_id, user_id, coupon_id, original_price, total_price, final_price, time_payment
		FROM payments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	query += " ORDER BY time_payment DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var summaries []model.PaymentSummary
	for rows.Next() {
		var s model.PaymentSummary
		if err := rows.Scan(&s.PaymentID, &s.UserID, &s.CouponID,
			&s.OriginalPrice, &s.TotalPrice, &s.FinalPrice, &s.TimePayment); err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	for i := range summaries {
		details, err := r.detailsForPayment(ctx, summaries[i].PaymentID)
		if err != nil {
			return nil, err
		}
		summaries[i].Details = details
		summaries[i].CourseAmount = len(details)
	}

	// Return empty slice, not nil
	if summaries == nil {
		summaries = []model.PaymentSummary{}
	}
	return summaries, nil
}

func (r *PaymentRepository) detailsForPayment(ctx context.Context, paymentID int64) ([]model.PaymentDetailView, error) {
	query := `SELECT d.course_id, co.title, d.coupon_id, d.price, d.final_price
		FROM payment_details d
		JOIN courses co ON co.course_id = d.course_id
		WHERE d.payment_id = $1
		ORDER BY d.course_id`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get details for payment %d: %w", paymentID, err)
	}
	defer rows.Close()

	var details []model.PaymentDetailView
	for rows.Next() {
		var d model.PaymentDetailView
		if err := rows.Scan(&d.CourseID, &d.CourseTitle, &d.CouponID, &d.Price, &d.FinalPrice); err != nil {
			return nil, fmt.Errorf("scan payment detail row: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment detail rows: %w", err)
	}
	if details == nil {
		details = []model.PaymentDetailView{}
	}
	return details, nil
}

// GetByID retrieves one payment. Returns nil, nil if the payment is not found.
func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*model.Payment, error) {
	query := `SELECT payment_id, user_id, coupon_id, original_price, total_price, final_price, time_payment
		FROM payments WHERE payment_id = $1`

	var p model.Payment
	err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&p.ID, &p.UserID, &p.CouponID, &p.OriginalPrice, &p.TotalPrice, &p.FinalPrice, &p.TimePayment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return &p, nil
}
