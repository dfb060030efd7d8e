package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatKeepsBaseIdentity(t *testing.T) {
	a := New("base")
	a.ReplyTo = "mbx"
	a.Append(userMessage(t, "one"))

	b := New("")
	b.Append(userMessage(t, "two"))

	out := Concat(a, b)
	assert.Equal(t, "base", out.ID)
	assert.Equal(t, "mbx", out.ReplyTo)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "two", out.Last().Prompts[0].Text)
	// base stays untouched
	assert.Len(t, a.Messages, 1)
}

func TestSplitByRole(t *testing.T) {
	d := New("")
	d.Append(userMessage(t, "q1"))
	reply, err := NewMessage(RoleAssistant, mustText(t, "a1"))
	require.NoError(t, err)
	d.Append(reply)

	all := SplitByRole(d)
	assert.Len(t, all, 2)

	assistants := SplitByRole(d, RoleAssistant)
	require.Len(t, assistants, 1)
	assert.Equal(t, "a1", assistants[0].Last().Prompts[0].Text)
	assert.NotEmpty(t, assistants[0].ID)
}

func TestCollapse(t *testing.T) {
	a := New("a")
	a.Append(userMessage(t, "one"))
	b := New("b")
	b.Append(userMessage(t, "two"))

	out, err := Collapse([]*Dialog{a, b}, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", out.ID)
	assert.Len(t, out.Messages, 2)

	_, err = Collapse([]*Dialog{a, b}, 5)
	assert.Error(t, err)
}
