package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/attendance/internal/models"
)

const (
	StreamName     = "ATTENDANCE"
	SubjectBase    = "attendance"
	CheckInSubject = SubjectBase + ".recorded"
)

var ErrNotConnected = errors.New("nats not connected")

// StreamConfig is the JetStream stream holding check-in events. Entries are
// kept for a day; the log ID doubles as the message ID so redelivered
// publishes are dropped inside the duplicate window.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  2 * time.Minute,
		Description: "Recorded attendance check-ins",
	}
}

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

// Producer publishes check-in events. It satisfies attendance.Publisher.
type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the check-in stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	cfg := StreamConfig()

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

// PublishCheckIn publishes a recorded entry on CheckInSubject.
func (p *Producer) PublishCheckIn(ctx context.Context, ev models.CheckInEvent) error {
	payload, err := EncodeCheckIn(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ctx, CheckInSubject, payload, jetstream.WithMsgID(ev.Log.ID.String()))
	if err != nil {
		return fmt.Errorf("publish check-in: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}

func EncodeCheckIn(ev models.CheckInEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal check-in: %w", err)
	}
	return payload, nil
}

func DecodeCheckIn(data []byte) (models.CheckInEvent, error) {
	var ev models.CheckInEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal check-in: %w", err)
	}
	return ev, nil
}
