package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

// AgentInvocation offers one logical blocking call to a named backend
// service, hiding the publish/consume plumbing. Each call provisions its
// own uniquely named reply mailbox, auto-expired by the broker, so
// concurrent invocations never observe each other's replies.
type AgentInvocation struct {
	router      *Router
	service     string
	agentConfig string
	syncTimeout time.Duration
	log         *slog.Logger
}

// NewAgentInvocation builds the facade. The synchronous deadline must be
// strictly below the router's temp queue TTL, otherwise the broker could
// destroy the reply mailbox before the deadline fires and the call would
// hang instead of timing out cleanly.
func NewAgentInvocation(r *Router, service, agentConfig string, syncTimeout time.Duration) (*AgentInvocation, error) {
	if service == "" {
		return nil, fmt.Errorf("agent service name is required")
	}
	if err := checkDeadline(syncTimeout, r.cfg.TempQueueTTL); err != nil {
		return nil, err
	}
	return &AgentInvocation{
		router:      r,
		service:     service,
		agentConfig: agentConfig,
		syncTimeout: syncTimeout,
		log:         r.log,
	}, nil
}

func checkDeadline(timeout, ttl time.Duration) error {
	if timeout <= 0 || timeout >= ttl {
		return ErrSyncTimeoutTooLong
	}
	return nil
}

// Invoke publishes the dialog to the target service and blocks until the
// correlated reply arrives or the deadline expires. Transport failures are
// retried exactly once after reconnecting, repeating the whole
// publish-then-wait sequence.
func (a *AgentInvocation) Invoke(ctx context.Context, d *dialog.Dialog) (*dialog.Dialog, error) {
	if err := checkDeadline(a.syncTimeout, a.router.cfg.TempQueueTTL); err != nil {
		return nil, err
	}
	if len(d.Messages) == 0 {
		return nil, dialog.ErrNoMessages
	}
	if err := a.router.Connect(ctx); err != nil {
		return nil, err
	}
	res, err := a.invokeOnce(ctx, d)
	var terr *TransportError
	if !errors.As(err, &terr) {
		return res, err
	}
	a.log.Warn("invocation failed, reconnecting once", slog.String("dialog_id", d.ID), slog.Any("error", err))
	if rerr := a.router.reconnect(ctx); rerr != nil {
		return nil, rerr
	}
	return a.invokeOnce(ctx, d)
}

func (a *AgentInvocation) invokeOnce(ctx context.Context, d *dialog.Dialog) (*dialog.Dialog, error) {
	ch, err := a.router.channel()
	if err != nil {
		return nil, err
	}

	// Fresh mailbox per call; the broker garbage-collects it via x-expires.
	mailbox := fmt.Sprintf("%s.reply.%s", a.service, uuid.NewString())
	args := amqp.Table{"x-expires": int32(a.router.cfg.TempQueueTTL / time.Millisecond)}
	q, err := ch.QueueDeclare(mailbox, false, true, true, false, args)
	if err != nil {
		return nil, transportErr("declare reply mailbox", err)
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.ReplyTo = q.Name
	if a.agentConfig != "" {
		d.RequestAgentConfig = a.agentConfig
	}
	if last := d.Last(); last != nil {
		last.Routing = dialog.DirectTo(a.service)
	}
	d.RefreshProjections()
	a.router.registry.Put(d)

	if err := a.router.PublishDialog(ctx, d, SendOptions{}); err != nil {
		return nil, err
	}

	tag := uuid.NewString()
	deliveries, err := ch.Consume(q.Name, tag, false, true, false, false, nil)
	if err != nil {
		return nil, transportErr("consume reply mailbox", err)
	}
	defer func() { _ = ch.Cancel(tag, false) }()

	timer := time.NewTimer(a.syncTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrReplyTimeout
		case del, ok := <-deliveries:
			if !ok {
				return nil, transportErr("consume reply mailbox", errors.New("delivery channel closed"))
			}
			if del.CorrelationId != d.ID {
				// Foreign reply; this mailbox is call-private, so just drop it.
				_ = del.Ack(false)
				continue
			}
			incoming, err := dialog.LoadFromBytes(del.Body)
			if err != nil {
				_ = del.Ack(false)
				return nil, err
			}
			entry, ok := a.router.registry.Get(d.ID)
			if !ok {
				entry = d
			}
			entry.MergeIncoming(incoming.Messages)
			applyHeaderMetadata(entry, del.Headers)
			entry.RefreshProjections()
			_ = del.Ack(false)
			a.log.Info("invocation completed", slog.String("dialog_id", d.ID), slog.String("service", a.service))
			return entry, nil
		}
	}
}
