package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// UrgentQueue receives one message per entry marked high urgency.
const UrgentQueue = "entry.urgent"

// UrgentEntryEvent is the message body published to UrgentQueue.
type UrgentEntryEvent struct {
	EntryID           string    `json:"entry_id"`
	UserName          string    `json:"user_name"`
	Date              string    `json:"date"`
	Emotion           string    `json:"emotion"`
	AssignedCounselor string    `json:"assigned_counselor,omitempty"`
	MarkedBy          string    `json:"marked_by"`
	MarkedAt          time.Time `json:"marked_at"`
}

// UrgentNotifier publishes urgent-entry events to RabbitMQ. Urgent marks are
// rare, so each publish dials its own connection. An empty URL disables it.
type UrgentNotifier struct {
	url string
}

func NewUrgentNotifier(url string) *UrgentNotifier {
	return &UrgentNotifier{url: url}
}

func (n *UrgentNotifier) Enabled() bool {
	return n != nil && n.url != ""
}

// NotifyUrgent publishes the event. Each failing step is logged with the
// broker stage that failed.
func (n *UrgentNotifier) NotifyUrgent(ctx context.Context, entry models.JournalEntry, markedBy string) error {
	if !n.Enabled() {
		return nil
	}
	conn, err := amqp.Dial(n.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(UrgentQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(UrgentEntryEvent{
		EntryID:           entry.ID,
		UserName:          entry.UserName,
		Date:              entry.Date,
		Emotion:           string(entry.Emotion),
		AssignedCounselor: entry.AssignedCounselor,
		MarkedBy:          markedBy,
		MarkedAt:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", UrgentQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
