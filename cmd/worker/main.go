package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/app"
	"github.com/vogiaan1904/quickseat-booking/internal/cron"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/quickseat-booking/internal/delivery/rabbitmq"
	"github.com/vogiaan1904/quickseat-booking/internal/infra/redis"
	"github.com/vogiaan1904/quickseat-booking/internal/notification"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
	pkgKafka "github.com/vogiaan1904/quickseat-booking/pkg/kafka"
	pkgLog "github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"github.com/vogiaan1904/quickseat-booking/pkg/mailer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
		Service:  "quickseat-worker",
	})
	defer func() { _ = l.Sync() }()

	redisCli, err := redis.Connect(ctx, cfg.Redis, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer redis.Disconnect(context.Background(), redisCli, l)

	stores, err := app.OpenStores(ctx, cfg, redisCli, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to open stores: %v", err)
	}
	defer stores.Close()

	pub, closePub, err := app.NewPublisher(ctx, cfg, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize event publisher: %v", err)
	}
	defer closePub()

	clock := service.SystemClock()
	gateway := app.NewGateway(cfg, l)
	scheduler := service.NewJobScheduler(stores.Jobs, clock, l)
	reconciler := service.NewReconciler(stores.Shows, stores.Bookings, gateway, scheduler, pub, clock, l, cfg.Booking)

	// Expiry processor
	processor := service.NewExpiryProcessor(stores.Jobs, reconciler, clock, l, cfg.Scheduler)
	if err := processor.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start expiry processor: %v", err)
	}

	// Fallback sweep
	sweeper, err := cron.NewSweepScheduler(ctx, reconciler, cfg.Booking.SweepInterval, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to create sweep scheduler: %v", err)
	}
	sweeper.Start()

	// Notification consumer
	var waitConsumer func()
	if cfg.Notify.Enabled {
		notifSvc, err := notification.NewService(mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}), l, notification.Config{
			OpsEmail:     cfg.Notify.OpsEmail,
			ClientOrigin: cfg.Booking.ClientOrigin,
			Timezone:     cfg.Booking.ShowTimezone,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize notification service: %v", err)
		}

		switch cfg.Notify.Broker {
		case config.BrokerRabbitMQ:
			cons := rabbitmq.NewConsumer(cfg.RabbitMQ.URL, notifSvc, l)
			cons.Start(ctx)
			waitConsumer = cons.Wait
		default:
			consGr, err := pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
				Brokers:  cfg.Kafka.Brokers,
				ClientID: "quickseat-worker",
				GroupID:  cfg.Kafka.ConsumerGroupID,
			})
			if err != nil {
				l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
			}
			cons := consumer.NewConsumer(consGr, notifSvc, l)
			if err := cons.Start(ctx); err != nil {
				l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
			}
			waitConsumer = func() {
				if err := cons.Close(); err != nil {
					l.Errorf(context.Background(), "Failed to close Kafka consumer: %v", err)
				}
			}
		}
	}

	l.Info(ctx, "Worker started")
	<-ctx.Done()
	l.Info(ctx, "Worker shutting down...")

	if err := processor.Stop(); err != nil {
		l.Errorf(context.Background(), "Failed to stop expiry processor: %v", err)
	}
	if err := sweeper.Shutdown(); err != nil {
		l.Errorf(context.Background(), "Failed to stop sweep scheduler: %v", err)
	}
	if waitConsumer != nil {
		waitConsumer()
	}

	l.Info(context.Background(), "Worker exited")
}
