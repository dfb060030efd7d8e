package dialog

const (
	maxBillingAgentLen    = 64
	maxBillingCurrencyLen = 6
)

// BillingEntry records the cost attributed to one agent for one hop.
// Entries accumulate across hops and are never replaced.
type BillingEntry struct {
	Agent    string  `json:"agent"`
	Cost     float64 `json:"cost"`
	Currency string  `json:"currency"`
}

func (b BillingEntry) Validate() error {
	ve := newValidationError(ErrInvalidBilling)
	if len(b.Agent) > maxBillingAgentLen {
		ve.add("agent", "must be at most 64 characters")
	}
	if len(b.Currency) > maxBillingCurrencyLen {
		ve.add("currency", "must be at most 6 characters")
	}
	return ve.orNil()
}

func validateBilling(entries []BillingEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func cloneBilling(entries []BillingEntry) []BillingEntry {
	if entries == nil {
		return nil
	}
	out := make([]BillingEntry, len(entries))
	copy(out, entries)
	return out
}
