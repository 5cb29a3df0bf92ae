package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/pkg/database"
)

// FulfillmentRepositoryInterface defines the insert-only stores fulfillment writes to.
type FulfillmentRepositoryInterface interface {
	InsertEnrollment(ctx context.Context, userID, courseID int64) error
	SeedStudyProgress(ctx context.Context, userID, courseID int64) error
	SeedLastLecture(ctx context.Context, userID, courseID, lectureID int64) error
}

// CourseCatalogInterface defines the course lookups fulfillment needs.
type CourseCatalogInterface interface {
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Course, error)
	FirstLecture(ctx context.Context, courseID int64) (*model.Lecture, error)
}

// NotifierInterface delivers fire-and-forget purchase notifications.
type NotifierInterface interface {
	PurchaseCompleted(ctx context.Context, userID, courseID int64, courseTitle string) error
}

// FulfillmentService runs the side effects of a committed purchase: enrollment,
// study-progress seeding, last-lecture pointer, cart sweep, and the welcome
// notification. Steps are independent and idempotent; a failed step becomes a
// warning and is retried later by the worker, never a rollback.
type FulfillmentService struct {
	db         database.TxQuerier
	repo       FulfillmentRepositoryInterface
	courseRepo CourseCatalogInterface
	cartRepo   CartRepositoryInterface
	notifier   NotifierInterface
}

// NewFulfillmentService creates a new FulfillmentService backed by the given pool.
func NewFulfillmentService(
	pool *pgxpool.Pool,
	repo FulfillmentRepositoryInterface,
	courseRepo CourseCatalogInterface,
	cartRepo CartRepositoryInterface,
	notifier NotifierInterface,
) *FulfillmentService {
	return &FulfillmentService{db: pool, repo: repo, courseRepo: courseRepo, cartRepo: cartRepo, notifier: notifier}
}

// NewFulfillmentServiceWithQuerier creates a FulfillmentService with a custom querier.
// Primarily used for testing.
func NewFulfillmentServiceWithQuerier(
	db database.TxQuerier,
	repo FulfillmentRepositoryInterface,
	courseRepo CourseCatalogInterface,
	cartRepo CartRepositoryInterface,
	notifier NotifierInterface,
) *FulfillmentService {
	return &FulfillmentService{db: db, repo: repo, courseRepo: courseRepo, cartRepo: cartRepo, notifier: notifier}
}

// FulfillPurchase runs every fulfillment step for each purchased course and
// returns the collected warnings. An empty result means the purchase is fully
// fulfilled and its outbox record can be marked sent.
func (s *FulfillmentService) FulfillPurchase(ctx context.Context, userID int64, courseIDs []int64) []string {
	var warnings []string
	warn := func(courseID int64, step string, err error) {
		log.Error().Err(err).Int64("user_id", userID).Int64("course_id", courseID).
			Str("step", step).Msg("fulfillment step failed")
		warnings = append(warnings, fmt.Sprintf("course %d: %s failed: %v", courseID, step, err))
	}

	for _, courseID := range courseIDs {
		if err := s.repo.InsertEnrollment(ctx, userID, courseID); err != nil {
			warn(courseID, "enrollment", err)
		}
		if err := s.repo.SeedStudyProgress(ctx, userID, courseID); err != nil {
			warn(courseID, "study progress seeding", err)
		}
		if err := s.seedLastLecture(ctx, userID, courseID); err != nil {
			warn(courseID, "last lecture seeding", err)
		}
		if err := s.cartRepo.Delete(ctx, s.db, userID, courseID); err != nil {
			warn(courseID, "cart cleanup", err)
		}
		if err := s.notify(ctx, userID, courseID); err != nil {
			warn(courseID, "notification", err)
		}
	}
	return warnings
}

func (s *FulfillmentService) seedLastLecture(ctx context.Context, userID, courseID int64) error {
	first, err := s.courseRepo.FirstLecture(ctx, courseID)
	if err != nil {
		return err
	}
	if first == nil {
		// Course without lectures yet: nothing to point at.
		return nil
	}
	return s.repo.SeedLastLecture(ctx, userID, courseID, first.ID)
}

func (s *FulfillmentService) notify(ctx context.Context, userID, courseID int64) error {
	course, err := s.courseRepo.GetByID(ctx, s.db, courseID)
	if err != nil {
		return err
	}
	title := ""
	if course != nil {
		title = course.Title
	}
	return s.notifier.PurchaseCompleted(ctx, userID, courseID, title)
}
