package dialog

import (
	"github.com/google/uuid"
)

// ProtocolVersion is stamped on every serialized dialog and message.
const ProtocolVersion = "1.0"

// Dialog is one ordered conversation. The ID doubles as the transport
// correlation id; ReplyTo is the mailbox that responses concerning this
// dialog are delivered to.
//
// LastBilling, LastDiagnosticData and LastRouting are cached projections of
// the tail message. Invariant: after any mutation of Messages they equal the
// corresponding fields of the last message.
type Dialog struct {
	ID      string
	ReplyTo string

	Messages []*Message

	RequestAgentConfig     string
	EndUserCommunicationID string

	LastBilling        []BillingEntry
	LastDiagnosticData string
	LastRouting        RoutingStrategy

	Version string
}

// New creates an empty dialog, generating an id when none is given.
func New(id string) *Dialog {
	if id == "" {
		id = uuid.NewString()
	}
	return &Dialog{ID: id, Version: ProtocolVersion}
}

// Append adds a message to the tail and refreshes the cached projections.
func (d *Dialog) Append(m *Message) {
	d.Messages = append(d.Messages, m)
	d.RefreshProjections()
}

// MergeIncoming extends the tail with messages received from the network.
func (d *Dialog) MergeIncoming(msgs []*Message) {
	d.Messages = append(d.Messages, msgs...)
	d.RefreshProjections()
}

// Last returns the tail message, or nil for an empty dialog.
func (d *Dialog) Last() *Message {
	if len(d.Messages) == 0 {
		return nil
	}
	return d.Messages[len(d.Messages)-1]
}

// RefreshProjections recomputes the cached last-message projections. It must
// be called again after any external callback that may have mutated the
// dialog, so the projections reflect the truly last state.
func (d *Dialog) RefreshProjections() {
	last := d.Last()
	if last == nil {
		return
	}
	d.LastBilling = cloneBilling(last.Billing)
	d.LastDiagnosticData = last.DiagnosticData
	d.LastRouting = last.Routing
}

// TrimToLastN returns a deep copy holding only the last n messages.
// n larger than the message count yields a full copy.
func (d *Dialog) TrimToLastN(n int) *Dialog {
	if n > len(d.Messages) {
		n = len(d.Messages)
	}
	if n < 0 {
		n = 0
	}
	cp := &Dialog{
		ID:                     d.ID,
		ReplyTo:                d.ReplyTo,
		RequestAgentConfig:     d.RequestAgentConfig,
		EndUserCommunicationID: d.EndUserCommunicationID,
		Version:                d.Version,
	}
	for _, m := range d.Messages[len(d.Messages)-n:] {
		cp.Messages = append(cp.Messages, m.Clone())
	}
	cp.RefreshProjections()
	return cp
}

// PrepareReply builds the outgoing copy for a reply publish: at most newest
// messages, never including the one just received (it is implicitly
// acknowledged by replying). Billing entries of the excluded messages are
// accumulated, in hop order, onto the outgoing last message. When
// autoRouting is set, every included message is re-stamped direct to the
// dialog's own mailbox.
func (d *Dialog) PrepareReply(newest int, autoRouting bool) (*Dialog, error) {
	if len(d.Messages) == 0 {
		return nil, ErrNoMessages
	}
	if d.ReplyTo == "" {
		return nil, ErrNoReplyAddress
	}
	limit := len(d.Messages) - 1
	if limit < 1 {
		limit = len(d.Messages)
	}
	if newest <= 0 || newest > limit {
		newest = limit
	}
	out := d.TrimToLastN(newest)

	var carried []BillingEntry
	for _, m := range d.Messages[:len(d.Messages)-newest] {
		carried = append(carried, m.Billing...)
	}
	if autoRouting {
		for _, m := range out.Messages {
			m.Routing = DirectTo(d.ReplyTo)
		}
	}
	if last := out.Last(); last != nil && len(carried) > 0 {
		last.Billing = append(cloneBilling(carried), last.Billing...)
	}
	out.RefreshProjections()
	return out, nil
}

// GenerateErrorMessage appends a synthetic assistant turn carrying the error
// text, addressed direct to the dialog's own mailbox. Terminal failures flow
// back through the normal reply channel this way.
func (d *Dialog) GenerateErrorMessage(text string) error {
	prompt, err := NewTextPrompt(text)
	if err != nil {
		return err
	}
	msg, err := NewMessage(RoleAssistant, prompt)
	if err != nil {
		return err
	}
	msg.SenderInfo = "dialog router"
	msg.Routing = DirectTo(d.ReplyTo)
	d.Append(msg)
	return nil
}
