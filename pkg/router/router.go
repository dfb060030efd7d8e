package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Router owns the conversation registry and the broker connection, and
// implements the two delivery patterns of the protocol: the server loop
// with asynchronous correlated replies, and the publish path used by both
// the server and the invocation facade.
type Router struct {
	cfg      Config
	log      *slog.Logger
	registry *Registry

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New builds a Router. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger) *Router {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		cfg:      cfg,
		log:      logger,
		registry: NewRegistry(),
	}
}

func (r *Router) Config() Config      { return r.cfg }
func (r *Router) Registry() *Registry { return r.registry }

// Connect idempotently establishes the broker connection and opens the
// channel with the configured prefetch. Operations requiring a connection
// call this first.
func (r *Router) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectLocked(ctx)
}

func (r *Router) connectLocked(ctx context.Context) error {
	if r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed() {
		return nil
	}
	conn, err := dialWithRetry(ctx, r.cfg, r.log)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return transportErr("open channel", err)
	}
	if err := ch.Qos(r.cfg.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return transportErr("qos", err)
	}
	r.conn = conn
	r.ch = ch
	r.log.Info("router connected", slog.String("input_queue", r.cfg.InputQueue))
	return nil
}

// reconnect drops the current connection and dials again. Used by the
// one-shot transport retry.
func (r *Router) reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && !r.conn.IsClosed() {
		_ = r.conn.Close()
	}
	r.conn = nil
	r.ch = nil
	return r.connectLocked(ctx)
}

func (r *Router) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil || r.ch.IsClosed() {
		return nil, transportErr("channel", errors.New("not connected"))
	}
	return r.ch, nil
}

func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.ch = nil
	return err
}
