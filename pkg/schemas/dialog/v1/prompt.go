package dialog

import "strings"

// ContentType identifies the payload kind of a UnifiedPrompt.
type ContentType string

const (
	ContentText          ContentType = "text"
	ContentURL           ContentType = "url"
	ContentImage         ContentType = "image"
	ContentDocument      ContentType = "document"
	ContentAudio         ContentType = "audio"
	ContentVideo         ContentType = "video"
	ContentStreamOfBytes ContentType = "stream_of_bytes"
	ContentStreamAudio   ContentType = "stream_audio"
	ContentStreamVideo   ContentType = "stream_video"
)

// mimeFamilies lists the permitted MIME prefix families per content type.
// Stream types carry no restriction.
var mimeFamilies = map[ContentType][]string{
	ContentText:     {"text/"},
	ContentURL:      {"text/", "application/", "image/", "video/", "audio/"},
	ContentImage:    {"image/"},
	ContentDocument: {"application/"},
	ContentAudio:    {"audio/"},
	ContentVideo:    {"video/"},
}

func (c ContentType) known() bool {
	switch c {
	case ContentText, ContentURL, ContentImage, ContentDocument, ContentAudio,
		ContentVideo, ContentStreamOfBytes, ContentStreamAudio, ContentStreamVideo:
		return true
	}
	return false
}

// Binary reports whether the content travels as a byte blob on the wire.
func (c ContentType) Binary() bool {
	return c != ContentText && c != ContentURL
}

// UnifiedPrompt is one typed, MIME-validated unit of multi-modal content.
// Text holds the payload for text and url prompts, Data for all binary kinds.
// A prompt is built once via a constructor and not mutated afterwards.
type UnifiedPrompt struct {
	ContentType ContentType
	Text        string
	Data        []byte
	MIMEType    string
}

func NewTextPrompt(text string) (UnifiedPrompt, error) {
	return newTextual(ContentText, text, "text/plain")
}

func NewURLPrompt(url, mimeType string) (UnifiedPrompt, error) {
	return newTextual(ContentURL, url, mimeType)
}

func NewImagePrompt(data []byte, mimeType string) (UnifiedPrompt, error) {
	return newBinary(ContentImage, data, mimeType)
}

func NewDocumentPrompt(data []byte, mimeType string) (UnifiedPrompt, error) {
	return newBinary(ContentDocument, data, mimeType)
}

func NewAudioPrompt(data []byte, mimeType string) (UnifiedPrompt, error) {
	return newBinary(ContentAudio, data, mimeType)
}

func NewVideoPrompt(data []byte, mimeType string) (UnifiedPrompt, error) {
	return newBinary(ContentVideo, data, mimeType)
}

// NewStreamPrompt builds one of the stream_* prompts.
func NewStreamPrompt(ct ContentType, data []byte, mimeType string) (UnifiedPrompt, error) {
	return newBinary(ct, data, mimeType)
}

func newTextual(ct ContentType, text, mimeType string) (UnifiedPrompt, error) {
	p := UnifiedPrompt{ContentType: ct, Text: text, MIMEType: mimeType}
	if err := p.Validate(); err != nil {
		return UnifiedPrompt{}, err
	}
	return p, nil
}

func newBinary(ct ContentType, data []byte, mimeType string) (UnifiedPrompt, error) {
	p := UnifiedPrompt{ContentType: ct, Data: data, MIMEType: mimeType}
	if err := p.Validate(); err != nil {
		return UnifiedPrompt{}, err
	}
	return p, nil
}

// Validate checks the content type, the content variant shape and the
// MIME prefix family.
func (p UnifiedPrompt) Validate() error {
	ve := newValidationError(ErrInvalidPrompt)
	if !p.ContentType.known() {
		ve.add("content_type", "unsupported content type "+string(p.ContentType))
		return ve
	}
	if p.ContentType.Binary() {
		if p.Text != "" {
			ve.add("content", "binary prompt must not carry text content")
		}
	} else if p.Data != nil {
		ve.add("content", "textual prompt must not carry byte content")
	}
	if families, ok := mimeFamilies[p.ContentType]; ok {
		matched := false
		for _, fam := range families {
			if strings.HasPrefix(p.MIMEType, fam) {
				matched = true
				break
			}
		}
		if !matched {
			ve.add("mime_type", "mime type "+p.MIMEType+" not allowed for "+string(p.ContentType))
		}
	}
	return ve.orNil()
}

func (p UnifiedPrompt) clone() UnifiedPrompt {
	cp := p
	if p.Data != nil {
		cp.Data = make([]byte, len(p.Data))
		copy(cp.Data, p.Data)
	}
	return cp
}
