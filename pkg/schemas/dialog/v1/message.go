package dialog

import "time"

// Role identifies the author side of a conversational turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) known() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is one conversational turn: a role, an ordered list of prompts
// and the cross-cutting metadata carried alongside the content. A message
// is owned by exactly one Dialog.
type Message struct {
	Role       Role
	Prompts    []UnifiedPrompt
	SenderInfo string
	SubAccount string
	SendTime   time.Time

	// DiagnosticData and AgentConfig are opaque to the protocol; they are
	// carried verbatim for the receiving side.
	DiagnosticData string
	AgentConfig    string

	Billing []BillingEntry
	Routing RoutingStrategy
}

// NewMessage builds a validated message with a fresh billing list.
func NewMessage(role Role, prompts ...UnifiedPrompt) (*Message, error) {
	m := &Message{
		Role:     role,
		Prompts:  prompts,
		SendTime: time.Now(),
		Billing:  []BillingEntry{},
		Routing:  Auto(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the role, every prompt and every billing entry.
func (m *Message) Validate() error {
	if !m.Role.known() {
		ve := newValidationError(ErrInvalidPrompt)
		ve.add("role", "must be one of system, user, assistant")
		return ve
	}
	for _, p := range m.Prompts {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return validateBilling(m.Billing)
}

// Clone returns a deep copy safe for independent mutation.
func (m *Message) Clone() *Message {
	cp := *m
	cp.Prompts = make([]UnifiedPrompt, len(m.Prompts))
	for i, p := range m.Prompts {
		cp.Prompts[i] = p.clone()
	}
	cp.Billing = cloneBilling(m.Billing)
	return &cp
}
