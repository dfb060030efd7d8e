package router

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxDialDelay = 60 * time.Second

// dialWithRetry tries to connect to the broker with exponential backoff.
// It respects context cancellation for graceful shutdown.
func dialWithRetry(ctx context.Context, cfg Config, log *slog.Logger) (*amqp.Connection, error) {
	dial := cfg.Dialer
	if dial == nil {
		dial = func(_ context.Context, u string) (*amqp.Connection, error) { return amqp.Dial(u) }
	}

	var lastErr error
	for i := 1; i <= cfg.DialAttempts; i++ {
		conn, err := dial(ctx, cfg.brokerURL())
		if err == nil {
			if i > 1 {
				log.Info("broker connected", slog.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err

		sleep := cfg.DialDelay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}

		log.Warn("broker dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, transportErr("dial", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, transportErr("dial", fmt.Errorf("failed to connect after %d attempts: %w",
		cfg.DialAttempts, lastErr))
}
