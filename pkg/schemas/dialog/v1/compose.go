package dialog

import "fmt"

// Concat returns a new dialog carrying base's identity and metadata with the
// messages of all dialogs appended in order.
func Concat(base *Dialog, others ...*Dialog) *Dialog {
	out := base.TrimToLastN(len(base.Messages))
	for _, o := range others {
		for _, m := range o.Messages {
			out.Messages = append(out.Messages, m.Clone())
		}
	}
	out.RefreshProjections()
	return out
}

// SplitByRole splits a dialog into one single-message dialog per matching
// message. An empty role filter matches every message.
func SplitByRole(d *Dialog, roles ...Role) []*Dialog {
	accepted := func(r Role) bool {
		if len(roles) == 0 {
			return true
		}
		for _, want := range roles {
			if r == want {
				return true
			}
		}
		return false
	}
	var out []*Dialog
	for _, m := range d.Messages {
		if !accepted(m.Role) {
			continue
		}
		part := New("")
		part.ReplyTo = d.ReplyTo
		part.EndUserCommunicationID = d.EndUserCommunicationID
		part.Append(m.Clone())
		out = append(out, part)
	}
	return out
}

// Collapse merges a list of dialogs into the one at baseIndex, preserving
// message order within each dialog.
func Collapse(dialogs []*Dialog, baseIndex int) (*Dialog, error) {
	if baseIndex < 0 || baseIndex >= len(dialogs) {
		return nil, fmt.Errorf("base dialog index %d out of range", baseIndex)
	}
	out := dialogs[baseIndex].TrimToLastN(len(dialogs[baseIndex].Messages))
	for i, d := range dialogs {
		if i == baseIndex {
			continue
		}
		for _, m := range d.Messages {
			out.Messages = append(out.Messages, m.Clone())
		}
	}
	out.RefreshProjections()
	return out, nil
}
