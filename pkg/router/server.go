package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

// Transport header fields carried next to the compressed dialog body.
const (
	headerBillingData        = "billingData"
	headerRoutingStrategy    = "routingStrategy"
	headerEndUserID          = "endUserCommunicationID"
	headerSubAccount         = "subAccount"
	headerDiagnosticData     = "diagnosticData"
	headerRequestAgentConfig = "requestAgentConfig"
)

// MessageHandler processes one received dialog. The returned flag is a
// retention directive: true keeps the registry (projections are refreshed
// afterwards, since the handler may have mutated the dialog), false wipes
// the whole registry.
type MessageHandler func(ctx context.Context, d *dialog.Dialog) (keep bool, err error)

// RunServer consumes the input mailbox until the context is cancelled.
// Failure isolation is per envelope: handler and decode errors are logged
// and the loop continues. Errors that prevent the loop from starting are
// returned.
func (r *Router) RunServer(ctx context.Context, handler MessageHandler, allowNewDialogs bool) error {
	if err := r.Connect(ctx); err != nil {
		return err
	}
	ch, err := r.channel()
	if err != nil {
		return err
	}
	q, err := ch.QueueDeclare(r.cfg.InputQueue, true, false, false, false, nil)
	if err != nil {
		return transportErr("declare input queue", err)
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return transportErr("consume", err)
	}
	r.log.Info("server started", slog.String("queue", q.Name), slog.Int("prefetch", r.cfg.Prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case del, ok := <-deliveries:
			if !ok {
				return transportErr("consume", errors.New("delivery channel closed"))
			}
			if err := r.handleDelivery(ctx, del, handler, allowNewDialogs); err != nil {
				r.log.Error("envelope processing failed",
					slog.String("dialog_id", del.CorrelationId),
					slog.Any("error", err),
				)
			}
			_ = del.Ack(false)
		}
	}
}

// handleDelivery decodes one envelope, merges it into the registry and runs
// the handler. Unknown dialog ids are discarded when new dialogs are not
// allowed. It never acks; the loop does.
func (r *Router) handleDelivery(ctx context.Context, del amqp.Delivery, handler MessageHandler, allowNewDialogs bool) error {
	id := del.CorrelationId
	if id == "" {
		return fmt.Errorf("%w: missing correlation id", dialog.ErrMalformedPayload)
	}
	entry, known := r.registry.Get(id)
	if !known && !allowNewDialogs {
		r.log.Debug("discarded envelope for unknown dialog", slog.String("dialog_id", id))
		return nil
	}

	incoming, err := dialog.LoadFromBytes(del.Body)
	if err != nil {
		return err
	}
	incoming.ID = id
	if del.ReplyTo != "" {
		incoming.ReplyTo = del.ReplyTo
	}

	if known {
		entry.MergeIncoming(incoming.Messages)
		if incoming.RequestAgentConfig != "" {
			entry.RequestAgentConfig = incoming.RequestAgentConfig
		}
		if incoming.ReplyTo != "" {
			entry.ReplyTo = incoming.ReplyTo
		}
	} else {
		r.registry.Put(incoming)
		entry = incoming
	}

	// Network-attached billing and diagnostics take precedence over the
	// body's last message.
	applyHeaderMetadata(entry, del.Headers)
	entry.RefreshProjections()

	keep, err := handler(ctx, entry)
	if err != nil {
		return err
	}
	if keep {
		entry.RefreshProjections()
	} else {
		r.registry.Reset()
		r.log.Debug("registry reset by handler", slog.String("dialog_id", id))
	}
	return nil
}

func applyHeaderMetadata(d *dialog.Dialog, headers amqp.Table) {
	last := d.Last()
	if last == nil {
		return
	}
	if raw, ok := headers[headerBillingData].(string); ok && raw != "" {
		var entries []dialog.BillingEntry
		if err := json.Unmarshal([]byte(raw), &entries); err == nil {
			last.Billing = entries
		}
	}
	if diag, ok := headers[headerDiagnosticData].(string); ok && diag != "" {
		last.DiagnosticData = diag
	}
	if sub, ok := headers[headerSubAccount].(string); ok && sub != "" && last.SubAccount == "" {
		last.SubAccount = sub
	}
	if endUser, ok := headers[headerEndUserID].(string); ok && endUser != "" && d.EndUserCommunicationID == "" {
		d.EndUserCommunicationID = endUser
	}
}
