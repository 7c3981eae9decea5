package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	previewSeparator   = " · "
	previewPlaceholder = "5-minute journal entry"
	previewItemLimit   = 2
)

// Body is the decoded form of an entry's content. It is either a FreeText or
// a FiveMinute value.
type Body interface {
	Template() Template
	Serialize() string
	Preview() string
}

// FreeText is opaque prose; the entry title is meaningful alongside it.
type FreeText struct {
	Text string
}

func (FreeText) Template() Template  { return TemplateFree }
func (f FreeText) Serialize() string { return f.Text }
func (f FreeText) Preview() string   { return f.Text }

// FiveMinute is the structured daily template. List fields always hold three
// slots; an empty string is an unfilled slot. Field order is the encoding order.
type FiveMinute struct {
	Gratitude    [3]string `json:"gratitude"`
	Intentions   [3]string `json:"intentions"`
	Affirmations string    `json:"affirmations"`
	Highlights   [3]string `json:"highlights"`
	Improvement  string    `json:"improvement"`
}

func (FiveMinute) Template() Template { return TemplateFiveMinute }

// Serialize encodes the document. Encoding a struct of strings cannot fail.
func (d FiveMinute) Serialize() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// Preview joins up to two gratitude items and two highlights, or falls back to
// a fixed placeholder when none are filled in.
func (d FiveMinute) Preview() string {
	parts := append(filled(d.Gratitude, previewItemLimit), filled(d.Highlights, previewItemLimit)...)
	if len(parts) == 0 {
		return previewPlaceholder
	}
	return strings.Join(parts, previewSeparator)
}

// IsEmpty reports whether no slot or scalar has been filled in.
func (d FiveMinute) IsEmpty() bool {
	return d == FiveMinute{}
}

func filled(slots [3]string, limit int) []string {
	out := make([]string, 0, limit)
	for _, s := range slots {
		if len(out) == limit {
			break
		}
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseFiveMinute decodes serialized five-minute content. Anything that does not
// parse yields the empty document instead of an error; only out-of-band writers
// produce such content.
func ParseFiveMinute(text string) FiveMinute {
	var d FiveMinute
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return FiveMinute{}
	}
	return d
}

// DecodeFiveMinute is the strict form of ParseFiveMinute used on writes: the
// text must be exactly one five-minute document with no unknown fields.
func DecodeFiveMinute(text string) (FiveMinute, error) {
	var d FiveMinute
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return FiveMinute{}, fmt.Errorf("%w: content is not a five-minute document: %v", ErrValidation, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return FiveMinute{}, fmt.Errorf("%w: trailing data after five-minute document", ErrValidation)
	}
	return d, nil
}

// Decode interprets content according to t.
func Decode(t Template, content string) Body {
	if t == TemplateFiveMinute {
		return ParseFiveMinute(content)
	}
	return FreeText{Text: content}
}
