package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

const maxBackoff = 30 * time.Second

// Dial connects to the broker, retrying with exponential backoff until it
// succeeds or ctx is done.
func Dial(ctx context.Context, url string, l logger.Logger) (*amqp.Connection, error) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			l.Infof(ctx, "RabbitMQ connected to %s", redact(url))
			return conn, nil
		}

		l.Warnf(ctx, "rabbitmq.Dial: %v; retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq dial: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// DeclareQueues declares durable queues named after the event topics. The
// default exchange routes by queue name.
func DeclareQueues(ch *amqp.Channel, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

func redact(url string) string {
	u, err := amqp.ParseURI(url)
	if err != nil {
		return "<invalid url>"
	}
	return fmt.Sprintf("%s://%s:%d%s", u.Scheme, u.Host, u.Port, u.Vhost)
}
