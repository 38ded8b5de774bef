package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dmitrijs2005/godex/internal/logging"
)

// JetStreamPublisher publishes events to the GODEX stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logging.Logger
}

func NewJetStreamPublisher(natsURL string, logger logging.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("godex-server"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &JetStreamPublisher{nc: nc, js: js, logger: logger}, nil
}

// StreamConfig describes the stream every godex subject is stored in.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  time.Minute,
		Description: "Collection tracker domain events",
	}
}

// EnsureStream creates or updates the stream, retrying while the broker
// starts up. It gives up after maxAttempts one second apart.
func (p *JetStreamPublisher) EnsureStream(ctx context.Context, maxAttempts int) error {
	cfg := StreamConfig()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			p.logger.Info(ctx, "ensured NATS stream", "name", cfg.Name)
			return nil
		}
		p.logger.Warn(ctx, "ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
}

func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *JetStreamPublisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *JetStreamPublisher) Close() {
	p.nc.Close()
}
