package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/checkout-system/internal/model"
)

// mockOutboxSource is a mock implementation of OutboxSource.
type mockOutboxSource struct {
	fetchPendingFn func(ctx context.Context, limit int) ([]model.OutboxRecord, error)
	markSentFn     func(ctx context.Context, id int64) error
	sentIDs        []int64
}

func (m *mockOutboxSource) FetchPending(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
	if m.fetchPendingFn != nil {
		return m.fetchPendingFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockOutboxSource) MarkSent(ctx context.Context, id int64) error {
	if m.markSentFn != nil {
		return m.markSentFn(ctx, id)
	}
	m.sentIDs = append(m.sentIDs, id)
	return nil
}

// mockFulfillment is a mock implementation of service.FulfillmentInterface.
type mockFulfillment struct {
	fulfillFn func(ctx context.Context, userID int64, courseIDs []int64) []string
	calls     int
}

func (m *mockFulfillment) FulfillPurchase(ctx context.Context, userID int64, courseIDs []int64) []string {
	m.calls++
	if m.fulfillFn != nil {
		return m.fulfillFn(ctx, userID, courseIDs)
	}
	return nil
}

func checkoutRecord(t *testing.T, id int64) model.OutboxRecord {
	t.Helper()
	payload, err := json.Marshal(model.CheckoutCompleted{PaymentID: 42, UserID: 1, CourseIDs: []int64{10, 11}})
	require.NoError(t, err)
	return model.OutboxRecord{ID: id, Topic: model.TopicCheckoutCompleted, Payload: payload}
}

func TestProcess_SuccessMarksSent(t *testing.T) {
	outbox := &mockOutboxSource{}
	fulfillment := &mockFulfillment{}
	w := New(outbox, fulfillment, time.Second, 10)

	var captured []int64
	fulfillment.fulfillFn = func(ctx context.Context, userID int64, courseIDs []int64) []string {
		captured = courseIDs
		return nil
	}

	w.process(context.Background(), checkoutRecord(t, 7))

	assert.Equal(t, []int64{10, 11}, captured)
	assert.Equal(t, []int64{7}, outbox.sentIDs)
}

func TestProcess_WarningsKeepRecordPending(t *testing.T) {
	outbox := &mockOutboxSource{}
	fulfillment := &mockFulfillment{
		fulfillFn: func(ctx context.Context, userID int64, courseIDs []int64) []string {
			return []string{"course 10: enrollment failed: db down"}
		},
	}
	w := New(outbox, fulfillment, time.Second, 10)

	w.process(context.Background(), checkoutRecord(t, 7))

	assert.Empty(t, outbox.sentIDs, "incomplete fulfillment must stay pending for retry")
}

func TestProcess_UnknownTopicIsDropped(t *testing.T) {
	outbox := &mockOutboxSource{}
	fulfillment := &mockFulfillment{}
	w := New(outbox, fulfillment, time.Second, 10)

	w.process(context.Background(), model.OutboxRecord{ID: 7, Topic: "refund.completed", Payload: []byte(`{}`)})

	assert.Equal(t, 0, fulfillment.calls)
	assert.Equal(t, []int64{7}, outbox.sentIDs, "unknown topics are dropped, not retried forever")
}

func TestProcess_MalformedPayloadIsDropped(t *testing.T) {
	outbox := &mockOutboxSource{}
	fulfillment := &mockFulfillment{}
	w := New(outbox, fulfillment, time.Second, 10)

	w.process(context.Background(), model.OutboxRecord{ID: 7, Topic: model.TopicCheckoutCompleted, Payload: []byte(`{not json`)})

	assert.Equal(t, 0, fulfillment.calls)
	assert.Equal(t, []int64{7}, outbox.sentIDs)
}

func TestDrain_ProcessesWholeBatch(t *testing.T) {
	outbox := &mockOutboxSource{
		fetchPendingFn: func(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
			assert.Equal(t, 10, limit)
			return []model.OutboxRecord{}, nil
		},
	}
	fulfillment := &mockFulfillment{}
	w := New(outbox, fulfillment, time.Second, 10)

	w.drain(context.Background())

	assert.Equal(t, 0, fulfillment.calls)
}

func TestRun_DrainsImmediatelyAndStopsOnCancel(t *testing.T) {
	fetched := make(chan struct{})
	var once bool
	outbox := &mockOutboxSource{
		fetchPendingFn: func(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
			if !once {
				once = true
				close(fetched)
			}
			return nil, nil
		},
	}
	w := New(outbox, &mockFulfillment{}, time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("worker did not drain on startup")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
