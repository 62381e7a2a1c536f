package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/event"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/util"
)

type Producer interface {
	PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error
	PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error
	PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error
	PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishBookingConfirmed(ctx context.Context, evt event.BookingConfirmedEvent) error {
	// Keyed by booking so retries of one booking stay ordered.
	if err := p.send(ctx, event.TopicBookingConfirmed, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishBookingConfirmed: %v", err)
		return err
	}
	return nil
}

func (p *implProducer) PublishBookingExpired(ctx context.Context, evt event.BookingExpiredEvent) error {
	if err := p.send(ctx, event.TopicBookingExpired, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishBookingExpired: %v", err)
		return err
	}
	return nil
}

func (p *implProducer) PublishPaymentOrphaned(ctx context.Context, evt event.PaymentOrphanedEvent) error {
	if err := p.send(ctx, event.TopicPaymentOrphaned, evt.BookingID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishPaymentOrphaned: %v", err)
		return err
	}
	return nil
}

func (p *implProducer) PublishShowAdded(ctx context.Context, evt event.ShowAddedEvent) error {
	if err := p.send(ctx, event.TopicShowAdded, evt.MovieID, evt); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishShowAdded: %v", err)
		return err
	}
	return nil
}

func (p *implProducer) send(ctx context.Context, topic, key string, payload any) error {
	val, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(util.TimeToISO8601Str(time.Now())),
			},
		},
	}

	partition, offset, err := p.prod.SendMessage(msg)
	if err != nil {
		return err
	}

	p.l.Debugf(ctx, "delivery.kafka.producer.send: %s key=%s partition=%d offset=%d", topic, key, partition, offset)

	return nil
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
