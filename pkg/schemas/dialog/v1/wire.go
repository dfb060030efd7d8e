package dialog

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"time"

	_ "image/gif"
	_ "image/jpeg"
)

type wirePrompt struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	MIMEType    string `json:"mime_type"`
}

type wireMessage struct {
	Role           string          `json:"role"`
	UnifiedPrompts []wirePrompt    `json:"unified_prompts"`
	SenderInfo     string          `json:"sender_info"`
	SendTime       string          `json:"send_datetime"`
	AgentConfig    string          `json:"agentConfig,omitempty"`
	BillingData    []BillingEntry  `json:"billingData"`
	DiagnosticData string          `json:"diagnosticData,omitempty"`
	Routing        json.RawMessage `json:"routingStrategy,omitempty"`
	SubAccount     string          `json:"subAccount"`
	Version        string          `json:"protocolVersion"`
}

type wireDialog struct {
	DialogID               string          `json:"dialog_id"`
	ReplyTo                string          `json:"reply_to"`
	Messages               []wireMessage   `json:"messages"`
	LastBilling            []BillingEntry  `json:"lastMessageBillingData"`
	LastDiagnosticData     string          `json:"lastMessageDiagnosticData,omitempty"`
	LastRouting            json.RawMessage `json:"lastMessageRoutingStrategy,omitempty"`
	RequestAgentConfig     string          `json:"requestAgentConfig,omitempty"`
	EndUserCommunicationID string          `json:"endUserCommunicationID,omitempty"`
	Version                string          `json:"protocolVersion"`
}

// Serialize produces the JSON wire document. Binary prompt content is
// base64-encoded inline; image content is first re-encoded through PNG so
// the wire form is normalized and lossless.
func (d *Dialog) Serialize() ([]byte, error) {
	wd := wireDialog{
		DialogID:               d.ID,
		ReplyTo:                d.ReplyTo,
		LastBilling:            d.LastBilling,
		LastDiagnosticData:     d.LastDiagnosticData,
		RequestAgentConfig:     d.RequestAgentConfig,
		EndUserCommunicationID: d.EndUserCommunicationID,
		Version:                d.Version,
	}
	if wd.Version == "" {
		wd.Version = ProtocolVersion
	}
	lastRouting, err := d.LastRouting.WireForm()
	if err != nil {
		return nil, err
	}
	wd.LastRouting = lastRouting

	for i, m := range d.Messages {
		wm, err := messageToWire(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		wd.Messages = append(wd.Messages, wm)
	}
	return json.Marshal(wd)
}

// Deserialize parses a raw JSON wire document into a new Dialog.
func Deserialize(data []byte) (*Dialog, error) {
	var wd wireDialog
	if err := json.Unmarshal(data, &wd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if wd.DialogID == "" {
		return nil, fmt.Errorf("%w: missing dialog_id", ErrMalformedPayload)
	}
	d := &Dialog{
		ID:                     wd.DialogID,
		ReplyTo:                wd.ReplyTo,
		RequestAgentConfig:     wd.RequestAgentConfig,
		EndUserCommunicationID: wd.EndUserCommunicationID,
		Version:                wd.Version,
	}
	for i, wm := range wd.Messages {
		m, err := messageFromWire(wm)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		d.Messages = append(d.Messages, m)
	}
	if len(d.Messages) > 0 {
		d.RefreshProjections()
		return d, nil
	}
	// Empty dialogs keep the wire-level projections.
	d.LastBilling = wd.LastBilling
	d.LastDiagnosticData = wd.LastDiagnosticData
	if wd.LastRouting != nil {
		rs, err := ParseRoutingStrategy(wd.LastRouting)
		if err != nil {
			return nil, err
		}
		d.LastRouting = rs
	}
	return d, nil
}

func messageToWire(m *Message) (wireMessage, error) {
	wm := wireMessage{
		Role:           string(m.Role),
		SenderInfo:     m.SenderInfo,
		SendTime:       m.SendTime.Format(time.RFC3339Nano),
		AgentConfig:    m.AgentConfig,
		BillingData:    m.Billing,
		DiagnosticData: m.DiagnosticData,
		SubAccount:     m.SubAccount,
		Version:        ProtocolVersion,
	}
	routing, err := m.Routing.WireForm()
	if err != nil {
		return wireMessage{}, err
	}
	wm.Routing = routing
	for _, p := range m.Prompts {
		wp, err := promptToWire(p)
		if err != nil {
			return wireMessage{}, err
		}
		wm.UnifiedPrompts = append(wm.UnifiedPrompts, wp)
	}
	return wm, nil
}

func messageFromWire(wm wireMessage) (*Message, error) {
	m := &Message{
		Role:           Role(wm.Role),
		SenderInfo:     wm.SenderInfo,
		SubAccount:     wm.SubAccount,
		AgentConfig:    wm.AgentConfig,
		DiagnosticData: wm.DiagnosticData,
		Billing:        wm.BillingData,
		Routing:        Auto(),
	}
	if m.Billing == nil {
		m.Billing = []BillingEntry{}
	}
	if wm.SendTime != "" {
		ts, err := time.Parse(time.RFC3339Nano, wm.SendTime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad send_datetime %q", ErrMalformedPayload, wm.SendTime)
		}
		m.SendTime = ts
	}
	if wm.Routing != nil {
		rs, err := ParseRoutingStrategy(wm.Routing)
		if err != nil {
			return nil, err
		}
		m.Routing = rs
	}
	for _, wp := range wm.UnifiedPrompts {
		p, err := promptFromWire(wp)
		if err != nil {
			return nil, err
		}
		m.Prompts = append(m.Prompts, p)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func promptToWire(p UnifiedPrompt) (wirePrompt, error) {
	wp := wirePrompt{ContentType: string(p.ContentType), MIMEType: p.MIMEType}
	switch {
	case p.ContentType == ContentImage:
		normalized, err := reencodePNG(p.Data)
		if err != nil {
			return wirePrompt{}, err
		}
		wp.Content = base64.StdEncoding.EncodeToString(normalized)
	case p.ContentType.Binary():
		wp.Content = base64.StdEncoding.EncodeToString(p.Data)
	default:
		wp.Content = p.Text
	}
	return wp, nil
}

func promptFromWire(wp wirePrompt) (UnifiedPrompt, error) {
	p := UnifiedPrompt{ContentType: ContentType(wp.ContentType), MIMEType: wp.MIMEType}
	if p.ContentType.Binary() {
		data, err := base64.StdEncoding.DecodeString(wp.Content)
		if err != nil {
			return UnifiedPrompt{}, fmt.Errorf("%w: bad base64 content", ErrMalformedPayload)
		}
		p.Data = data
	} else {
		p.Text = wp.Content
	}
	if err := p.Validate(); err != nil {
		return UnifiedPrompt{}, err
	}
	return p, nil
}

// reencodePNG decodes any supported image format and re-encodes it as PNG.
func reencodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		ve := newValidationError(ErrInvalidPrompt)
		ve.add("content", "image content is not a decodable bitmap")
		return nil, ve
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
