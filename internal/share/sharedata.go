// Package share stages links shared from other apps and saves them once a
// session is available.
package share

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Kind tags the variant held by a ShareData.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindTextList
	KindKeyed
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTextList:
		return "text_list"
	case KindKeyed:
		return "keyed"
	default:
		return "unsupported"
	}
}

// keyedFields are the object fields that may carry the shared value, in priority order.
var keyedFields = []string{"url", "text", "value", "data"}

// ShareData is the shared value: a string, a list of strings, or an object.
// The zero value is Unsupported.
type ShareData struct {
	kind  Kind
	text  string
	list  []string
	keyed map[string]any
}

// Text wraps a plain string payload.
func Text(s string) ShareData {
	return ShareData{kind: KindText, text: s}
}

// TextList wraps a list payload. Only string elements are kept.
func TextList(items ...string) ShareData {
	return ShareData{kind: KindTextList, list: items}
}

// Keyed wraps an object payload.
func Keyed(m map[string]any) ShareData {
	return ShareData{kind: KindKeyed, keyed: maps.Clone(m)}
}

// Unsupported is a payload of any other shape.
func Unsupported() ShareData {
	return ShareData{}
}

// Kind returns the variant tag.
func (d ShareData) Kind() Kind {
	return d.kind
}

// Narrow reduces d to its single text value.
// A list yields its first element; an object yields the first non-empty
// string among url, text, value and data.
func Narrow(d ShareData) (string, bool) {
	switch d.kind {
	case KindText:
		return d.text, true
	case KindTextList:
		if len(d.list) == 0 {
			return "", false
		}
		return d.list[0], true
	case KindKeyed:
		for _, field := range keyedFields {
			if s, ok := d.keyed[field].(string); ok && s != "" {
				return s, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// UnmarshalJSON picks the variant from the first JSON token.
func (d *ShareData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode share data: %w", err)
	}

	switch v := tok.(type) {
	case string:
		*d = Text(v)
	case json.Delim:
		switch v {
		case '[':
			var raw []json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("decode share list: %w", err)
			}
			items := make([]string, 0, len(raw))
			for _, r := range raw {
				var s string
				if json.Unmarshal(r, &s) == nil {
					items = append(items, s)
				}
			}
			*d = TextList(items...)
		case '{':
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("decode share object: %w", err)
			}
			*d = ShareData{kind: KindKeyed, keyed: m}
		default:
			*d = Unsupported()
		}
	default:
		*d = Unsupported()
	}
	return nil
}

// MarshalJSON writes the variant back in its original shape.
// Unsupported encodes as null.
func (d ShareData) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case KindText:
		return json.Marshal(d.text)
	case KindTextList:
		if d.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.list)
	case KindKeyed:
		return json.Marshal(d.keyed)
	default:
		return []byte("null"), nil
	}
}

// Payload is one share event as delivered by a Source.
type Payload struct {
	Data      ShareData      `json:"data"`
	MimeType  string         `json:"mimeType,omitempty"`
	ExtraData map[string]any `json:"extraData,omitempty"`
}

// PendingShare is a share staged for saving. It is never persisted.
type PendingShare struct {
	URL        string
	RawText    string
	MimeType   string
	ExtraData  map[string]any
	ReceivedAt time.Time
}
