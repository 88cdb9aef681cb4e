package variant

import (
	"encoding/json"
	"time"
)

// Payload is the decoded details tree: either a Nested hop wrapping a
// deeper payload, or a terminal Leaf. The two implementations are the only
// ones; consumers can switch exhaustively.
type Payload interface {
	// Tag returns the discriminator at this level.
	Tag() string

	isPayload()
}

// Nested is a container hop: a discriminator plus its sibling fields and
// the payload one level down.
type Nested struct {
	Child    Payload
	Siblings map[string]any
	NodeTag  string
}

func (n *Nested) Tag() string { return n.NodeTag }
func (n *Nested) isPayload()  {}

// Sibling returns a named sibling field at this hop.
func (n *Nested) Sibling(name string) (any, bool) {
	v, ok := n.Siblings[name]
	return v, ok
}

// Leaf is a terminal payload.
//
// For catalogued kinds whose payload matched the declared schema, Fields
// holds the coerced values. When the tag is uncatalogued, or the runtime
// shape disagrees with the registration, Fields is nil and only Raw is
// populated; Unknown marks the uncatalogued case. Raw always carries the
// verbatim field mapping.
type Leaf struct {
	Fields  map[string]any
	Raw     map[string]json.RawMessage
	NodeTag string
	Unknown bool
}

func (l *Leaf) Tag() string { return l.NodeTag }
func (l *Leaf) isPayload()  {}

// Field returns a coerced field value.
func (l *Leaf) Field(name string) (any, bool) {
	v, ok := l.Fields[name]
	return v, ok
}

// String returns a coerced string field, or def when absent.
func (l *Leaf) String(name, def string) string {
	if v, ok := l.Fields[name].(string); ok {
		return v
	}
	return def
}

// Bool returns a coerced bool field, or def when absent.
func (l *Leaf) Bool(name string, def bool) bool {
	if v, ok := l.Fields[name].(bool); ok {
		return v
	}
	return def
}

// Int returns a coerced integer field, or def when absent.
func (l *Leaf) Int(name string, def int64) int64 {
	if v, ok := l.Fields[name].(int64); ok {
		return v
	}
	return def
}

// Duration returns a coerced duration field, or def when absent.
func (l *Leaf) Duration(name string, def time.Duration) time.Duration {
	if v, ok := l.Fields[name].(time.Duration); ok {
		return v
	}
	return def
}
