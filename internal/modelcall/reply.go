// Package modelcall is the single boundary between the engines and a hosted
// generative model: it normalizes provider replies to plain text and runs
// each call under a wall-clock bound.
package modelcall

import (
	"encoding/json"
	"fmt"
)

type replyKind int

const (
	kindNone replyKind = iota
	kindText
	kindContent
	kindFields
	kindRaw
)

// Reply is the shape a provider hands back before normalization. It holds
// exactly one variant:
//
//   - Text: the provider returned a plain string.
//   - Content: the provider returned a message object exposing textual content.
//   - Fields: the provider returned a mapping; its "text" key carries the answer.
//   - Raw: anything else, rendered with its default string form.
//
// String applies that order of precedence and is the only way engines read a reply.
type Reply struct {
	kind   replyKind
	text   string
	fields map[string]any
	raw    any
}

func Text(s string) Reply { return Reply{kind: kindText, text: s} }
func Content(s string) Reply { return Reply{kind: kindContent, text: s} }
func Fields(m map[string]any) Reply { return Reply{kind: kindFields, fields: m} }
func Raw(v any) Reply { return Reply{kind: kindRaw, raw: v} }

// String normalizes the reply to plain text. An empty result means the
// provider produced nothing usable.
func (r Reply) String() string {
	switch r.kind {
	case kindText, kindContent:
		return r.text
	case kindFields:
		if v, ok := r.fields["text"]; ok {
			if v == nil {
				return ""
			}
			return fmt.Sprint(v)
		}
		if len(r.fields) == 0 {
			return ""
		}
		buf, err := json.Marshal(r.fields)
		if err != nil {
			return fmt.Sprint(r.fields)
		}
		return string(buf)
	case kindRaw:
		if r.raw == nil {
			return ""
		}
		return fmt.Sprint(r.raw)
	default:
		return ""
	}
}
