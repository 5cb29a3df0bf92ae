package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FulfillmentRepository owns the insert-only rows created after a purchase:
// enrollments, study-progress seeds, and the last-watched-lecture pointer.
// Every write is ON CONFLICT DO NOTHING so the worker can safely re-drive a
// partially fulfilled purchase.
type FulfillmentRepository struct {
	pool PoolInterface
}

// NewFulfillmentRepository creates a new FulfillmentRepository with the given pool.
func NewFulfillmentRepository(pool *pgxpool.Pool) *FulfillmentRepository {
	return &FulfillmentRepository{pool: pool}
}

// NewFulfillmentRepositoryWithPool creates a new FulfillmentRepository with a
// custom pool interface. This is primarily used for testing.
func NewFulfillmentRepositoryWithPool(pool PoolInterface) *FulfillmentRepository {
	return &FulfillmentRepository{pool: pool}
}

// InsertEnrollment grants a user access to a course, at most once.
func (r *FulfillmentRepository) InsertEnrollment(ctx context.Context, userID, courseID int64) error {
	query := `INSERT INTO enrollments (user_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("insert enrollment for user %d course %d: %w", userID, courseID, err)
	}
	return nil
}

// SeedStudyProgress creates one untouched progress row per lecture of the
// course. Lectures already seeded (a re-run, or a shared lecture) are skipped.
func (r *FulfillmentRepository) SeedStudyProgress(ctx context.Context, userID, courseID int64) error {
	query := `INSERT INTO study_progress (user_id, lecture_id, is_done, seconds)
		SELECT $1, l.lecture_id, false, 0
		FROM lectures l
		JOIN sections s ON s.section_id = l.section_id
		WHERE s.course_id = $2
		ON CONFLICT (user_id, lecture_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("seed study progress for user %d course %d: %w", userID, courseID, err)
	}
	return nil
}

// SeedLastLecture points the user's resume marker at a lecture, unless one is
// already set for the course.
func (r *FulfillmentRepository) SeedLastLecture(ctx context.Context, userID, courseID, lectureID int64) error {
	query := `INSERT INTO last_lecture_study (user_id, course_id, lecture_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID, courseID, lectureID); err != nil {
		return fmt.Errorf("seed last lecture for user %d course %d: %w", userID, courseID, err)
	}
	return nil
}
