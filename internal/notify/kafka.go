// Package notify delivers fire-and-forget purchase notifications over Kafka.
package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// WelcomeMessage is the payload published for each purchased course.
type WelcomeMessage struct {
	UserID      int64     `json:"userId"`
	CourseID    int64     `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	SentAt      time.Time `json:"sentAt"`
}

// KafkaNotifier publishes welcome notifications to a Kafka topic. With no
// brokers configured it degrades to a logged no-op, so local setups run
// without a broker.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier builds a notifier from a comma-separated broker list.
func NewKafkaNotifier(brokersCSV, topic string) *KafkaNotifier {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &KafkaNotifier{}
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Enabled reports whether a broker is configured.
func (n *KafkaNotifier) Enabled() bool {
	return n.writer != nil
}

// PurchaseCompleted publishes a welcome message for the purchased course,
// keyed by user so one user's notifications stay ordered.
func (n *KafkaNotifier) PurchaseCompleted(ctx context.Context, userID, courseID int64, courseTitle string) error {
	if !n.Enabled() {
		log.Debug().Int64("user_id", userID).Int64("course_id", courseID).
			Msg("notification publishing disabled, skipping welcome message")
		return nil
	}

	payload, err := json.Marshal(WelcomeMessage{
		UserID:      userID,
		CourseID:    courseID,
		CourseTitle: courseTitle,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	if n.writer == nil {
		return nil
	}
	return n.writer.Close()
}
