// Package worker drains the transactional outbox and re-drives post-purchase
// fulfillment until every side effect of a committed checkout has succeeded.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
)

// OutboxSource provides the pending-record feed the worker consumes.
type OutboxSource interface {
	FetchPending(ctx context.Context, limit int) ([]model.OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// Worker polls the outbox and runs fulfillment for each pending checkout.
// A record is marked sent only when fulfillment finishes without warnings, so
// partially fulfilled purchases are retried on the next poll.
type Worker struct {
	outbox      OutboxSource
	fulfillment service.FulfillmentInterface
	interval    time.Duration
	batchSize   int
}

// New creates a fulfillment worker.
func New(outbox OutboxSource, fulfillment service.FulfillmentInterface, interval time.Duration, batchSize int) *Worker {
	return &Worker{outbox: outbox, fulfillment: fulfillment, interval: interval, batchSize: batchSize}
}

// Run polls until the context is cancelled. It drains once immediately so a
// restart picks up backlog without waiting a full interval.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Int("batch_size", w.batchSize).Msg("fulfillment worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("fulfillment worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	records, err := w.outbox.FetchPending(ctx, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch pending outbox records")
		return
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, rec)
	}
}

func (w *Worker) process(ctx context.Context, rec model.OutboxRecord) {
	if rec.Topic != model.TopicCheckoutCompleted {
		// Unknown topics would be retried forever: drop them with a trace.
		log.Warn().Int64("outbox_id", rec.ID).Str("topic", rec.Topic).Msg("dropping outbox record with unknown topic")
		w.markSent(ctx, rec.ID)
		return
	}

	var event model.CheckoutCompleted
	if err := json.Unmarshal(rec.Payload, &event); err != nil {
		log.Error().Err(err).Int64("outbox_id", rec.ID).Msg("dropping outbox record with malformed payload")
		w.markSent(ctx, rec.ID)
		return
	}

	warnings := w.fulfillment.FulfillPurchase(ctx, event.UserID, event.CourseIDs)
	if len(warnings) > 0 {
		log.Warn().
			Int64("outbox_id", rec.ID).
			Int64("payment_id", event.PaymentID).
			Strs("warnings", warnings).
			Msg("fulfillment incomplete, will retry")
		return
	}

	w.markSent(ctx, rec.ID)
	log.Info().Int64("outbox_id", rec.ID).Int64("payment_id", event.PaymentID).Msg("fulfillment completed")
}

func (w *Worker) markSent(ctx context.Context, id int64) {
	if err := w.outbox.MarkSent(ctx, id); err != nil {
		log.Error().Err(err).Int64("outbox_id", id).Msg("failed to mark outbox record sent")
	}
}
