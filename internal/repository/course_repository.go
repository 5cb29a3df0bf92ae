package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/pkg/database"
)

// CourseRepository provides read access to the course catalog slice the
// checkout engine depends on: price, title, instructor, and lecture layout.
type CourseRepository struct {
	pool PoolInterface
}

// NewCourseRepository creates a new CourseRepository with the given pool.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// NewCourseRepositoryWithPool creates a new CourseRepository with a custom pool interface.
// This is primarily used for testing.
func NewCourseRepositoryWithPool(pool PoolInterface) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course, inside or outside a transaction.
// Returns nil, nil if the course is not found (service layer handles this).
func (r *CourseRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Course, error) {
	query := `SELECT course_id, user_id, title, price FROM courses WHERE course_id = $1`

	var c model.Course
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.UserID, &c.Title, &c.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id %d: %w", id, err)
	}
	return &c, nil
}

// ListLectureIDs returns every lecture id of a course ordered by section order,
// then lecture order. Fulfillment seeds one study-progress row per id.
func (r *CourseRepository) ListLectureIDs(ctx context.Context, courseID int64) ([]int64, error) {
	query := `SELECT l.lecture_id
		FROM lectures l
		JOIN sections s ON s.section_id = l.section_id
		WHERE s.course_id = $1
		ORDER BY s."order", l."order"`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lectures for course %d: %w", courseID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lecture id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lecture rows: %w", err)
	}

	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// FirstLecture returns the course's first lecture by (section order, lecture
// order), used to seed the last-watched pointer.
// Returns nil, nil for a course with no lectures yet.
func (r *CourseRepository) FirstLecture(ctx context.Context, courseID int64) (*model.Lecture, error) {
	query := `SELECT l.lecture_id, l.section_id, l.title, l."order"
		FROM lectures l
		JOIN sections s ON s.section_id = l.section_id
		WHERE s.course_id = $1
		ORDER BY s."order", l."order"
		LIMIT 1`

	var lec model.Lecture
	err := r.pool.QueryRow(ctx, query, courseID).Scan(&lec.ID, &lec.SectionID, &lec.Title, &lec.Order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get first lecture of course %d: %w", courseID, err)
	}
	return &lec, nil
}
