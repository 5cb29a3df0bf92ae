package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/pricing"
	"github.com/coursehub/checkout-system/pkg/database"
)

// CourseRepositoryInterface defines the course catalog access the checkout needs.
type CourseRepositoryInterface interface {
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Course, error)
}

// CartRepositoryInterface defines the cart access the checkout needs.
type CartRepositoryInterface interface {
	Exists(ctx context.Context, q database.TxQuerier, userID, courseID int64) (bool, error)
	Delete(ctx context.Context, q database.TxQuerier, userID, courseID int64) error
}

// CouponLedgerInterface defines the coupon lookups and the redemption ledger.
type CouponLedgerInterface interface {
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error)
	ActiveCouponForCourse(ctx context.Context, tx database.TxQuerier, courseID int64) (*model.Coupon, error)
	Redeem(ctx context.Context, tx database.TxQuerier, couponID int64) error
}

// PaymentRepositoryInterface defines payment persistence and aggregation.
type PaymentRepositoryInterface interface {
	InsertPayment(ctx context.Context, tx database.TxQuerier, p *model.Payment) (int64, error)
	InsertDetail(ctx context.Context, tx database.TxQuerier, d *model.PaymentDetail) error
	TotalsForPayment(ctx context.Context, tx database.TxQuerier, paymentID int64) (model.PaymentTotals, error)
	UpdateTotals(ctx context.Context, tx database.TxQuerier, p *model.Payment) error
	List(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentSummary, error)
}

// OutboxRepositoryInterface defines the transactional outbox access.
type OutboxRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, topic, key string, payload any) (int64, error)
	MarkSent(ctx context.Context, id int64) error
}

// FulfillmentInterface runs post-purchase side effects and reports failures as
// warnings instead of errors: a committed payment is never rolled back.
type FulfillmentInterface interface {
	FulfillPurchase(ctx context.Context, userID int64, courseIDs []int64) []string
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CheckoutService turns a cart snapshot into a durable payment. The whole
// conversion runs inside one transaction; any validation failure aborts it and
// leaves zero rows behind.
type CheckoutService struct {
	pool        TxBeginner
	courseRepo  CourseRepositoryInterface
	cartRepo    CartRepositoryInterface
	couponRepo  CouponLedgerInterface
	paymentRepo PaymentRepositoryInterface
	outboxRepo  OutboxRepositoryInterface
	fulfillment FulfillmentInterface
}

// NewCheckoutService creates a new CheckoutService with the given pool and repositories.
func NewCheckoutService(
	pool *pgxpool.Pool,
	courseRepo CourseRepositoryInterface,
	cartRepo CartRepositoryInterface,
	couponRepo CouponLedgerInterface,
	paymentRepo PaymentRepositoryInterface,
	outboxRepo OutboxRepositoryInterface,
	fulfillment FulfillmentInterface,
) *CheckoutService {
	return &CheckoutService{
		pool:        pool,
		courseRepo:  courseRepo,
		cartRepo:    cartRepo,
		couponRepo:  couponRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		fulfillment: fulfillment,
	}
}

// NewCheckoutServiceWithTxBeginner creates a CheckoutService with a custom TxBeginner.
// Primarily used for testing.
func NewCheckoutServiceWithTxBeginner(
	pool TxBeginner,
	courseRepo CourseRepositoryInterface,
	cartRepo CartRepositoryInterface,
	couponRepo CouponLedgerInterface,
	paymentRepo PaymentRepositoryInterface,
	outboxRepo OutboxRepositoryInterface,
	fulfillment FulfillmentInterface,
) *CheckoutService {
	return &CheckoutService{
		pool:        pool,
		courseRepo:  courseRepo,
		cartRepo:    cartRepo,
		couponRepo:  couponRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		fulfillment: fulfillment,
	}
}

// Checkout converts the submitted cart into a Payment with one PaymentDetail
// per course within a single transaction:
//
//  1. reject an empty cart, insert a placeholder payment
//  2. per item: verify course and cart membership, apply the course's active
//     coupon, write the detail, redeem the coupon, drop the cart row
//  3. recompute totals from the rows written in this transaction
//  4. optionally apply a cart-wide coupon at the aggregate
//  5. compare every figure with the client's; any inequality aborts
//  6. finalize the payment, write the outbox record, commit
//
// Fulfillment runs after commit; its failures come back as warnings on the
// result, never as an error.
// Returns:
//   - ErrEmptyCart when no items are submitted
//   - ErrCourseNotFound / ErrCourseNotInCart when an item fails verification
//   - ErrCouponNotFound / ErrCouponNotGlobal for a bad cart-wide coupon id
//   - ErrCouponExhausted when a concurrent checkout consumed the last redemption
//   - ErrPriceMismatch when server totals differ from the submitted ones
func (s *CheckoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if len(req.ItemCart) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	now := time.Now()
	payment := &model.Payment{
		UserID:        req.UserID,
		OriginalPrice: req.OriginalPrice,
		TotalPrice:    req.TotalPrice,
		FinalPrice:    req.FinalPrice, // placeholder, corrected after reconciliation
		TimePayment:   now,
	}
	payment.ID, err = s.paymentRepo.InsertPayment(ctx, tx, payment)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	details := make([]model.PaymentDetail, 0, len(req.ItemCart))
	courseIDs := make([]int64, 0, len(req.ItemCart))
	for _, item := range req.ItemCart {
		detail, err := s.processItem(ctx, tx, payment, item.CourseID, now)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
		courseIDs = append(courseIDs, item.CourseID)
	}

	totals, err := s.paymentRepo.TotalsForPayment(ctx, tx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile totals: %w", err)
	}
	payment.OriginalPrice = totals.OriginalPrice
	payment.TotalPrice = totals.TotalPrice
	payment.FinalPrice = totals.TotalPrice

	if req.CouponID != nil {
		if err := s.applyGlobalCoupon(ctx, tx, payment, *req.CouponID, now); err != nil {
			return nil, err
		}
	}

	if !payment.OriginalPrice.Equal(req.OriginalPrice) ||
		!payment.TotalPrice.Equal(req.TotalPrice) ||
		!payment.FinalPrice.Equal(req.FinalPrice) {
		log.Warn().
			Int64("user_id", req.UserID).
			Str("client_total", req.TotalPrice.String()).
			Str("server_total", payment.TotalPrice.String()).
			Str("client_final", req.FinalPrice.String()).
			Str("server_final", payment.FinalPrice.String()).
			Msg("price mismatch, aborting checkout")
		return nil, ErrPriceMismatch
	}

	if err := s.paymentRepo.UpdateTotals(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("finalize payment: %w", err)
	}

	outboxID, err := s.outboxRepo.Insert(ctx, tx, model.TopicCheckoutCompleted,
		strconv.FormatInt(payment.ID, 10),
		model.CheckoutCompleted{PaymentID: payment.ID, UserID: payment.UserID, CourseIDs: courseIDs})
	if err != nil {
		return nil, fmt.Errorf("insert outbox record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	// Post-commit: best-effort first fulfillment attempt. The outbox record
	// stays pending for the worker unless every side effect succeeded.
	warnings := s.fulfillment.FulfillPurchase(ctx, payment.UserID, courseIDs)
	if len(warnings) == 0 {
		if err := s.outboxRepo.MarkSent(ctx, outboxID); err != nil {
			log.Error().Err(err).Int64("payment_id", payment.ID).Msg("failed to mark outbox record sent")
		}
	}

	return &model.CheckoutResult{Payment: payment, Details: details, Warnings: warnings}, nil
}

// processItem handles one submitted cart item inside the checkout transaction.
func (s *CheckoutService) processItem(ctx context.Context, tx database.TxQuerier, payment *model.Payment, courseID int64, now time.Time) (*model.PaymentDetail, error) {
	course, err := s.courseRepo.GetByID(ctx, tx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	inCart, err := s.cartRepo.Exists(ctx, tx, payment.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check cart: %w", err)
	}
	if !inCart {
		return nil, ErrCourseNotInCart
	}

	coupon, err := s.couponRepo.ActiveCouponForCourse(ctx, tx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get active coupon: %w", err)
	}

	quote := pricing.Evaluate(coupon, course.Price, now)
	detail := &model.PaymentDetail{
		PaymentID:  payment.ID,
		CourseID:   course.ID,
		Price:      course.Price,
		FinalPrice: quote.FinalPrice,
	}
	if quote.Applicable {
		detail.CouponID = &coupon.ID
	}

	if err := s.paymentRepo.InsertDetail(ctx, tx, detail); err != nil {
		return nil, fmt.Errorf("insert detail: %w", err)
	}
	if quote.Applicable {
		if err := s.couponRepo.Redeem(ctx, tx, coupon.ID); err != nil {
			return nil, err
		}
	}
	if err := s.cartRepo.Delete(ctx, tx, payment.UserID, courseID); err != nil {
		return nil, fmt.Errorf("remove cart row: %w", err)
	}
	return detail, nil
}

// applyGlobalCoupon evaluates the cart-wide coupon against the aggregate total
// and, when applicable, records it on the payment and redeems it.
func (s *CheckoutService) applyGlobalCoupon(ctx context.Context, tx database.TxQuerier, payment *model.Payment, couponID int64, now time.Time) error {
	coupon, err := s.couponRepo.GetByID(ctx, tx, couponID)
	if err != nil {
		return fmt.Errorf("get cart coupon: %w", err)
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.IsGlobal {
		return ErrCouponNotGlobal
	}

	quote := pricing.Evaluate(coupon, payment.TotalPrice, now)
	if !quote.Applicable {
		return nil
	}

	id := coupon.ID
	payment.CouponID = &id
	payment.FinalPrice = quote.FinalPrice
	return s.couponRepo.Redeem(ctx, tx, coupon.ID)
}

// ListPayments returns paginated payment history. A non-positive limit falls
// back to 20.
func (s *CheckoutService) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentSummary, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	return s.paymentRepo.List(ctx, filter)
}
