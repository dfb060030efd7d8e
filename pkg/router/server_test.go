package router

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

func deliveryFor(t *testing.T, d *dialog.Dialog, headers amqp.Table) amqp.Delivery {
	t.Helper()
	body, err := d.SerializeCompressed()
	require.NoError(t, err)
	return amqp.Delivery{
		CorrelationId: d.ID,
		ReplyTo:       d.ReplyTo,
		Headers:       headers,
		Body:          body,
	}
}

func TestHandleDeliveryDiscardsUnknownDialog(t *testing.T) {
	r := testRouter()
	d := dialogWithMessage(t, "unknown", "mbx")

	called := false
	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) {
		called = true
		return true, nil
	}

	err := r.handleDelivery(context.Background(), deliveryFor(t, d, nil), handler, false)
	assert.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 0, r.Registry().Len())
}

func TestHandleDeliveryAdmitsNewDialog(t *testing.T) {
	r := testRouter()
	d := dialogWithMessage(t, "fresh", "caller.mbx")

	var seen *dialog.Dialog
	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) {
		seen = got
		return true, nil
	}

	headers := amqp.Table{
		headerBillingData:    `[{"agent":"modelA","cost":0.01,"currency":"USD"}]`,
		headerDiagnosticData: "trace=net",
	}
	err := r.handleDelivery(context.Background(), deliveryFor(t, d, headers), handler, true)
	require.NoError(t, err)
	require.NotNil(t, seen)

	entry, ok := r.Registry().Get("fresh")
	require.True(t, ok)
	assert.Same(t, seen, entry)
	assert.Equal(t, "caller.mbx", entry.ReplyTo)

	// network-attached metadata wins over the body's last message
	assert.Equal(t, []dialog.BillingEntry{{Agent: "modelA", Cost: 0.01, Currency: "USD"}}, entry.Last().Billing)
	assert.Equal(t, "trace=net", entry.Last().DiagnosticData)
	assert.Equal(t, entry.Last().Billing, entry.LastBilling)
}

func TestHandleDeliveryMergesIntoExisting(t *testing.T) {
	r := testRouter()

	existing := dialogWithMessage(t, "conv", "caller.mbx")
	r.Registry().Put(existing)

	reply := dialog.New("conv")
	p, err := dialog.NewTextPrompt("the answer")
	require.NoError(t, err)
	m, err := dialog.NewMessage(dialog.RoleAssistant, p)
	require.NoError(t, err)
	reply.Append(m)

	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) { return true, nil }
	err = r.handleDelivery(context.Background(), deliveryFor(t, reply, nil), handler, false)
	require.NoError(t, err)

	require.Len(t, existing.Messages, 2)
	assert.Equal(t, dialog.RoleAssistant, existing.Last().Role)
	assert.Equal(t, 1, r.Registry().Len())
}

func TestHandleDeliveryRetentionDirective(t *testing.T) {
	r := testRouter()
	d := dialogWithMessage(t, "session", "mbx")

	// handler mutates the dialog then keeps it: projections must follow
	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) {
		got.Last().DiagnosticData = "mutated-by-handler"
		return true, nil
	}
	require.NoError(t, r.handleDelivery(context.Background(), deliveryFor(t, d, nil), handler, true))
	entry, _ := r.Registry().Get("session")
	assert.Equal(t, "mutated-by-handler", entry.LastDiagnosticData)

	// false wipes the whole registry
	wipe := func(ctx context.Context, got *dialog.Dialog) (bool, error) { return false, nil }
	other := dialogWithMessage(t, "other", "mbx")
	require.NoError(t, r.handleDelivery(context.Background(), deliveryFor(t, other, nil), wipe, true))
	assert.Equal(t, 0, r.Registry().Len())
}

func TestHandleDeliveryIsolatesHandlerErrors(t *testing.T) {
	r := testRouter()
	d := dialogWithMessage(t, "boom", "mbx")

	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) {
		return true, errors.New("agent blew up")
	}
	err := r.handleDelivery(context.Background(), deliveryFor(t, d, nil), handler, true)
	assert.Error(t, err)
}

func TestHandleDeliveryRejectsMissingCorrelationID(t *testing.T) {
	r := testRouter()
	handler := func(ctx context.Context, got *dialog.Dialog) (bool, error) { return true, nil }
	err := r.handleDelivery(context.Background(), amqp.Delivery{Body: []byte("{}")}, handler, true)
	assert.ErrorIs(t, err, dialog.ErrMalformedPayload)
}
