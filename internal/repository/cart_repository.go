package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
	"github.com/coursehub/checkout-system/pkg/database"
)

// CartRepository provides data access for cart rows. Rows are scoped to one
// user, so no cross-user locking is needed.
type CartRepository struct {
	pool PoolInterface
}

// NewCartRepository creates a new CartRepository with the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// NewCartRepositoryWithPool creates a new CartRepository with a custom pool interface.
// This is primarily used for testing.
func NewCartRepositoryWithPool(pool PoolInterface) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add puts a course into a user's cart.
// Returns service.ErrAlreadyInCart when the row already exists.
func (r *CartRepository) Add(ctx context.Context, userID, courseID int64) error {
	query := `INSERT INTO carts (user_id, course_id) VALUES ($1, $2)`

	_, err := r.pool.Exec(ctx, query, userID, courseID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAlreadyInCart
		}
		return fmt.Errorf("add course %d to cart of user %d: %w", courseID, userID, err)
	}
	return nil
}

// Exists reports whether a course sits in a user's cart. Runs on the caller's
// querier so the checkout transaction sees its own view of the cart.
func (r *CartRepository) Exists(ctx context.Context, q database.TxQuerier, userID, courseID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM carts WHERE user_id = $1 AND course_id = $2)`

	var exists bool
	if err := q.QueryRow(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cart for user %d course %d: %w", userID, courseID, err)
	}
	return exists, nil
}

// Delete removes a course from a user's cart. Deleting an absent row is not an
// error, which keeps the fulfillment sweep idempotent.
func (r *CartRepository) Delete(ctx context.Context, q database.TxQuerier, userID, courseID int64) error {
	query := `DELETE FROM carts WHERE user_id = $1 AND course_id = $2`

	if _, err := q.Exec(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("delete course %d from cart of user %d: %w", courseID, userID, err)
	}
	return nil
}

// ListByUser returns the course ids currently in a user's cart, oldest first.
// On success, returns an empty slice (not nil) when the cart is empty.
func (r *CartRepository) ListByUser(ctx context.Context, userID int64) ([]model.CartItem, error) {
	query := `SELECT user_id, course_id, created_at FROM carts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart for user %d: %w", userID, err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.UserID, &item.CourseID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	if items == nil {
		items = []model.CartItem{}
	}
	return items, nil
}
