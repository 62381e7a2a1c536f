// Package app assembles the pieces both binaries share.
package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/rabbitmq"
	"github.com/vogiaan1904/quickseat-booking/internal/infra/postgres"
	"github.com/vogiaan1904/quickseat-booking/internal/payment"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	postgresrepo "github.com/vogiaan1904/quickseat-booking/internal/repository/postgres"
	redisrepo "github.com/vogiaan1904/quickseat-booking/internal/repository/redis"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
	pkgKafka "github.com/vogiaan1904/quickseat-booking/pkg/kafka"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	pkgRabbitMQ "github.com/vogiaan1904/quickseat-booking/pkg/rabbitmq"
)

type Stores struct {
	Shows    repository.ShowRepository
	Bookings repository.BookingRepository
	Jobs     repository.JobRepository
	close    func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores returns the configured show and booking store. The expiry
// queue always lives in Redis.
func OpenStores(ctx context.Context, cfg *config.Config, redisCli *goredis.Client, l logger.Logger) (*Stores, error) {
	s := &Stores{Jobs: redisrepo.NewRedisJobRepository(redisCli, cfg.Redis.KeyPrefix, l)}

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres, l)
		if err != nil {
			return nil, err
		}
		s.Shows = postgresrepo.NewPostgresShowRepository(db, l)
		s.Bookings = postgresrepo.NewPostgresBookingRepository(db, l)
		s.close = func() { postgres.Disconnect(context.Background(), db, l) }
	default:
		s.Shows = redisrepo.NewRedisShowRepository(redisCli, cfg.Redis.KeyPrefix, l)
		s.Bookings = redisrepo.NewRedisBookingRepository(redisCli, cfg.Redis.KeyPrefix, l)
	}

	l.Infof(ctx, "Using %s store", cfg.Store.Driver)
	return s, nil
}

// NewPublisher returns the event publisher for the configured broker and a
// func that closes it.
func NewPublisher(ctx context.Context, cfg *config.Config, l logger.Logger) (service.EventPublisher, func(), error) {
	if !cfg.Notify.Enabled {
		return service.NewNopPublisher(l), func() {}, nil
	}

	switch cfg.Notify.Broker {
	case config.BrokerRabbitMQ:
		conn, err := pkgRabbitMQ.Dial(ctx, cfg.RabbitMQ.URL, l)
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}
		if err := pkgRabbitMQ.DeclareQueues(ch, rabbitmq.Queues...); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		pub := rabbitmq.NewPublisher(ch, l)
		return pub, func() {
			_ = pub.Close()
			_ = conn.Close()
		}, nil

	default:
		syncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			ClientID:     "quickseat-booking",
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			return nil, nil, err
		}

		prod := producer.NewProducer(syncProd, l)
		return prod, func() { _ = prod.Close() }, nil
	}
}

func NewGateway(cfg *config.Config, l logger.Logger) payment.Gateway {
	return payment.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret, l)
}
