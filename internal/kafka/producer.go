package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/models"
)

// Topics published and consumed by the booking service.
const (
	TopicBookingConfirmed = "ticketly.booking.confirmed"
	TopicBookingCancelled = "ticketly.booking.cancelled"
	TopicEventSoldOut     = "ticketly.event.soldout"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// PublishBookingConfirmed streams the confirmation to Kafka, keyed by event
// so downstream consumers see one event's bookings in order.
func (p *Producer) PublishBookingConfirmed(msg models.BookingEventMessage) error {
	return p.publish(TopicBookingConfirmed, msg)
}

// PublishBookingCancelled streams the cancellation to Kafka.
func (p *Producer) PublishBookingCancelled(msg models.BookingEventMessage) error {
	return p.publish(TopicBookingCancelled, msg)
}

// PublishEventSoldOut announces that an event's last tickets are gone.
func (p *Producer) PublishEventSoldOut(msg models.BookingEventMessage) error {
	return p.publish(TopicEventSoldOut, msg)
}

func (p *Producer) publish(topic string, msg models.BookingEventMessage) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(msgBytes))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(msg.EventID),
			Value: msgBytes,
		},
	)
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
