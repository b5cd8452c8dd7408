package webhook

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// Payload is a parsed webhook body. Whop sends identifiers either flat on
// the envelope or nested under "data", so lookups go through Probe or Subject.
type Payload struct {
	raw  []byte
	root gjson.Result
}

// ParsePayload accepts any JSON object.
func ParsePayload(raw []byte) (*Payload, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, ErrInvalidPayload
	}
	return &Payload{raw: raw, root: root}, nil
}

func (p *Payload) Raw() []byte {
	return p.raw
}

// EventType reads "type", then "event_type", and falls back to "unknown".
func (p *Payload) EventType() string {
	if v := scalar(p.root.Get("type")); v != "" {
		return v
	}
	if v := scalar(p.root.Get("event_type")); v != "" {
		return v
	}
	return models.UnknownEventType
}

// Probe returns key from the envelope, else from "data". Empty if neither has it.
func (p *Payload) Probe(key string) string {
	if v := scalar(p.root.Get(gjson.Escape(key))); v != "" {
		return v
	}
	return scalar(p.root.Get("data." + gjson.Escape(key)))
}

// Subject is the "data" object when present, otherwise the envelope itself.
func (p *Payload) Subject() Fields {
	if data := p.root.Get("data"); data.IsObject() {
		return Fields{data}
	}
	return Fields{p.root}
}

// Fields reads scalar values out of a JSON object by gjson path.
type Fields struct {
	res gjson.Result
}

func (f Fields) String(path string) string {
	return scalar(f.res.Get(path))
}

// First returns the first non-empty value among paths.
func (f Fields) First(paths ...string) string {
	for _, path := range paths {
		if v := f.String(path); v != "" {
			return v
		}
	}
	return ""
}

// Time parses an RFC3339 string or unix seconds. Anything else is nil.
func (f Fields) Time(path string) *time.Time {
	res := f.res.Get(path)
	var (
		ts time.Time
		ok bool
	)
	switch res.Type {
	case gjson.Number:
		ts, ok = time.Unix(res.Int(), 0).UTC(), true
	case gjson.String:
		ts, ok = whop.ParseTimestamp(res.Str)
	}
	if !ok {
		return nil
	}
	return &ts
}

// scalar renders strings and numbers. Objects, arrays, booleans and null are empty.
func scalar(res gjson.Result) string {
	switch res.Type {
	case gjson.String:
		return res.Str
	case gjson.Number:
		return res.Raw
	default:
		return ""
	}
}
