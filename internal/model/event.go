package model

import (
	"encoding/json"
	"time"
)

// Outbox topics. The checkout transaction writes one record per commit; the
// fulfillment worker drains records whose side effects have not all succeeded.
const (
	TopicCheckoutCompleted = "checkout.completed"
)

// OutboxRecord is one pending event in the transactional outbox.
type OutboxRecord struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"eventId"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	SentAt    *time.Time      `json:"sentAt"`
}

// CheckoutCompleted is the payload of a checkout.completed outbox record.
type CheckoutCompleted struct {
	PaymentID int64   `json:"paymentId"`
	UserID    int64   `json:"userId"`
	CourseIDs []int64 `json:"courseIds"`
}
