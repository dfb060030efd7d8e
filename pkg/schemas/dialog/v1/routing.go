package dialog

import "encoding/json"

const (
	StrategyAuto   = "auto"
	StrategyDirect = "direct"
)

// RoutingStrategy describes how the next delivery hop is addressed.
// Its wire form is a flat JSON object with exactly the two keys
// "strategy" and "params", both strings.
type RoutingStrategy struct {
	Strategy string `json:"strategy"`
	Params   string `json:"params"`
}

// Auto is the default strategy: let the router pick the destination.
func Auto() RoutingStrategy { return RoutingStrategy{Strategy: StrategyAuto} }

// DirectTo addresses a specific queue by name.
func DirectTo(queue string) RoutingStrategy {
	return RoutingStrategy{Strategy: StrategyDirect, Params: queue}
}

// WireForm serializes the strategy to its flat two-key JSON object.
func (r RoutingStrategy) WireForm() ([]byte, error) {
	return json.Marshal(r)
}

// ParseRoutingStrategy parses a wire form, rejecting any shape other than
// exactly {"strategy": string, "params": string}.
func ParseRoutingStrategy(data []byte) (RoutingStrategy, error) {
	var rs RoutingStrategy
	if err := rs.UnmarshalJSON(data); err != nil {
		return RoutingStrategy{}, err
	}
	return rs, nil
}

func (r *RoutingStrategy) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		ve := newValidationError(ErrInvalidRoutingStrategy)
		ve.add("wire", "not a JSON object")
		return ve
	}
	ve := newValidationError(ErrInvalidRoutingStrategy)
	if len(raw) != 2 {
		ve.add("keys", "must contain exactly strategy and params")
	}
	strategy, ok := stringField(raw, "strategy")
	if !ok {
		ve.add("strategy", "required string field")
	}
	params, ok := stringField(raw, "params")
	if !ok {
		ve.add("params", "required string field")
	}
	if err := ve.orNil(); err != nil {
		return err
	}
	r.Strategy = strategy
	r.Params = params
	return nil
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}
