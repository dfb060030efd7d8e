package dialog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustText(t *testing.T, text string) UnifiedPrompt {
	t.Helper()
	p, err := NewTextPrompt(text)
	require.NoError(t, err)
	return p
}

func TestNewMessageValidatesRole(t *testing.T) {
	for _, role := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		_, err := NewMessage(role, mustText(t, "hi"))
		assert.NoError(t, err)
	}
	_, err := NewMessage(Role("operator"), mustText(t, "hi"))
	assert.ErrorIs(t, err, ErrInvalidPrompt)
}

func TestNewMessageFreshBilling(t *testing.T) {
	a, err := NewMessage(RoleUser, mustText(t, "a"))
	require.NoError(t, err)
	b, err := NewMessage(RoleUser, mustText(t, "b"))
	require.NoError(t, err)

	a.Billing = append(a.Billing, BillingEntry{Agent: "modelA", Cost: 0.01, Currency: "USD"})
	assert.Empty(t, b.Billing)
}

func TestBillingEntryConstraints(t *testing.T) {
	ok := BillingEntry{Agent: "modelA", Cost: 0.01, Currency: "USD"}
	assert.NoError(t, ok.Validate())

	longAgent := BillingEntry{Agent: strings.Repeat("a", 65), Currency: "USD"}
	assert.ErrorIs(t, longAgent.Validate(), ErrInvalidBilling)

	longCurrency := BillingEntry{Agent: "modelA", Currency: "dollars"}
	assert.ErrorIs(t, longCurrency.Validate(), ErrInvalidBilling)
}

func TestMessageValidateChecksBilling(t *testing.T) {
	m, err := NewMessage(RoleUser, mustText(t, "hi"))
	require.NoError(t, err)
	m.Billing = append(m.Billing, BillingEntry{Agent: strings.Repeat("x", 100)})
	assert.ErrorIs(t, m.Validate(), ErrInvalidBilling)
}

func TestMessageCloneIsDeep(t *testing.T) {
	m, err := NewMessage(RoleUser, mustText(t, "hi"))
	require.NoError(t, err)
	m.Billing = append(m.Billing, BillingEntry{Agent: "modelA", Cost: 1, Currency: "USD"})

	cp := m.Clone()
	cp.Billing[0].Agent = "modelB"
	cp.Prompts[0].Text = "changed"

	assert.Equal(t, "modelA", m.Billing[0].Agent)
	assert.Equal(t, "hi", m.Prompts[0].Text)
}
