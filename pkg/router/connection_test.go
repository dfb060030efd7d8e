package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDialWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := Config{
		Host:         "broker.invalid",
		DialAttempts: 3,
		DialDelay:    time.Millisecond,
		Dialer: func(ctx context.Context, url string) (*amqp.Connection, error) {
			attempts++
			return nil, errors.New("refused")
		},
	}

	_, err := dialWithRetry(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
}

func TestDialWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		Host:         "broker.invalid",
		DialAttempts: 100,
		DialDelay:    time.Hour,
		Dialer: func(ctx context.Context, url string) (*amqp.Connection, error) {
			return nil, errors.New("refused")
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := dialWithRetry(ctx, cfg, discardLogger())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("dialWithRetry did not honor cancellation")
	}
}

func TestChannelRequiresConnection(t *testing.T) {
	r := testRouter()
	_, err := r.channel()

	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestCloseIsIdempotent(t *testing.T) {
	r := testRouter()
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
