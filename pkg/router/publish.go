package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

// SendOptions controls how a dialog is published.
type SendOptions struct {
	// IsReply publishes back to the dialog's own mailbox instead of the
	// address named by its routing strategy.
	IsReply bool

	// NewestMessagesToSend limits a reply to the most recent messages,
	// never including the one just received. Zero means all eligible.
	NewestMessagesToSend int

	// AutoGenerateRoutingStrategies re-stamps every included reply message
	// direct to the dialog's mailbox.
	AutoGenerateRoutingStrategies bool
}

// SendDialog publishes the named registry dialog. Transport failures are
// retried exactly once after reconnecting; validation failures propagate
// immediately.
func (r *Router) SendDialog(ctx context.Context, dialogID string, opts SendOptions) error {
	d, ok := r.registry.Get(dialogID)
	if !ok {
		return ErrUnknownDialog
	}
	err := r.PublishDialog(ctx, d, opts)
	var terr *TransportError
	if !errors.As(err, &terr) {
		return err
	}
	r.log.Warn("publish failed, reconnecting once", slog.String("dialog_id", dialogID), slog.Any("error", err))
	if rerr := r.reconnect(ctx); rerr != nil {
		return rerr
	}
	return r.PublishDialog(ctx, d, opts)
}

// PublishDialog validates, prepares and publishes a dialog without any
// retry. The invocation facade drives this directly so it can retry the
// whole publish-then-wait sequence itself.
func (r *Router) PublishDialog(ctx context.Context, d *dialog.Dialog, opts SendOptions) error {
	out, key, err := prepareOutgoing(d, opts, r.cfg.OutputQueue)
	if err != nil {
		return err
	}
	body, err := out.SerializeCompressed()
	if err != nil {
		return err
	}
	headers, err := buildHeaders(out)
	if err != nil {
		return err
	}
	if err := r.Connect(ctx); err != nil {
		return err
	}
	ch, err := r.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", key, false, false, amqp.Publishing{
		ContentType:   "application/octet-stream",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: out.ID,
		ReplyTo:       out.ReplyTo,
		Timestamp:     time.Now(),
		Headers:       headers,
		Body:          body,
	})
	if err != nil {
		return transportErr("publish", err)
	}
	r.log.Info("published dialog",
		slog.String("dialog_id", out.ID),
		slog.String("queue", key),
		slog.Bool("reply", opts.IsReply),
	)
	return nil
}

// prepareOutgoing resolves the outgoing copy and destination queue. All
// validation happens here, before any network activity.
func prepareOutgoing(d *dialog.Dialog, opts SendOptions, outputQueue string) (*dialog.Dialog, string, error) {
	if len(d.Messages) == 0 {
		return nil, "", dialog.ErrNoMessages
	}
	if d.ReplyTo == "" {
		return nil, "", dialog.ErrNoReplyAddress
	}
	if opts.IsReply {
		out, err := d.PrepareReply(opts.NewestMessagesToSend, opts.AutoGenerateRoutingStrategies)
		if err != nil {
			return nil, "", err
		}
		return out, d.ReplyTo, nil
	}
	out := d.TrimToLastN(len(d.Messages))
	rs := out.LastRouting
	if rs.Strategy == dialog.StrategyDirect && rs.Params != "" {
		return out, rs.Params, nil
	}
	return out, outputQueue, nil
}

func buildHeaders(d *dialog.Dialog) (amqp.Table, error) {
	last := d.Last()
	billing, err := json.Marshal(last.Billing)
	if err != nil {
		return nil, err
	}
	routing, err := last.Routing.WireForm()
	if err != nil {
		return nil, err
	}
	headers := amqp.Table{
		headerBillingData:     string(billing),
		headerRoutingStrategy: string(routing),
		headerEndUserID:       d.EndUserCommunicationID,
		headerSubAccount:      last.SubAccount,
	}
	if last.DiagnosticData != "" {
		headers[headerDiagnosticData] = last.DiagnosticData
	}
	if d.RequestAgentConfig != "" {
		headers[headerRequestAgentConfig] = d.RequestAgentConfig
	}
	return headers, nil
}
