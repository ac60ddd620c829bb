package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/attendance/internal/models"
)

// CheckInHandler processes one decoded check-in event.
type CheckInHandler func(ctx context.Context, ev models.CheckInEvent) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeCheckIns feeds new check-in events to handler until ctx is done.
// Undecodable messages are terminated; handler failures are redelivered up
// to three times.
func (c *Consumer) ConsumeCheckIns(ctx context.Context, consumerName string, handler CheckInHandler) error {
	stream, err := c.js.Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", StreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: CheckInSubject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch check-ins error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				handleMessage(ctx, msg, handler)
			}
		}
	}()

	slog.Info("check-in consumer started", "consumer", consumerName)
	return nil
}

// message is the subset of jetstream.Msg used when handling a delivery.
type message interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

func handleMessage(ctx context.Context, msg message, handler CheckInHandler) {
	ev, err := DecodeCheckIn(msg.Data())
	if err != nil {
		slog.Error("drop malformed check-in", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
		return
	}
	if err := handler(ctx, ev); err != nil {
		slog.Error("process check-in error", "log_id", ev.Log.ID, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

func (c *Consumer) Close() {
	c.nc.Close()
}
