package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dialog "github.com/agentweave/dialogmq/pkg/schemas/dialog/v1"
)

func TestNewAgentInvocationDeadlineBounds(t *testing.T) {
	r := testRouter()
	ttl := r.Config().TempQueueTTL

	cases := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -time.Second, true},
		{"equal to mailbox ttl", ttl, true},
		{"above mailbox ttl", ttl + time.Second, true},
		{"just below mailbox ttl", ttl - time.Millisecond, false},
		{"typical", 30 * time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAgentInvocation(r, "agent.gpt", "", tc.timeout)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrSyncTimeoutTooLong)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAgentInvocationRequiresService(t *testing.T) {
	r := testRouter()
	_, err := NewAgentInvocation(r, "", "", 5*time.Second)
	assert.Error(t, err)
}

func TestInvokeRejectsEmptyDialogBeforeDialing(t *testing.T) {
	r := testRouter()
	inv, err := NewAgentInvocation(r, "agent.gpt", "", 5*time.Second)
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), dialog.New("empty"))
	assert.ErrorIs(t, err, dialog.ErrNoMessages)
}

func TestInvokeSurfacesTransportError(t *testing.T) {
	r := testRouter()
	inv, err := NewAgentInvocation(r, "agent.gpt", "", 5*time.Second)
	require.NoError(t, err)

	d := dialogWithMessage(t, "d1", "")
	_, err = inv.Invoke(context.Background(), d)

	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}
