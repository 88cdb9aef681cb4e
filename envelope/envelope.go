package envelope

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/maago/notify-bridge/errors"
)

// Envelope is the validated outer message structure.
//
// ID is generated by the sender and treated purely as an identity key.
// Timestamp carries the sender's offset and is diagnostic only; ordering
// guarantees come from the dispatch layer, never from the clock.
type Envelope struct {
	ID        uuid.UUID
	Timestamp time.Time
	Summary   string
	Type      string
	Details   json.RawMessage
}

// wire is the stabilized JSON shape.
type wire struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Msg       string          `json:"msg"`
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
}

// Decode parses raw JSON into a validated Envelope.
//
// Validation: id must be a canonical UUID, timestamp must be RFC 3339 with
// an explicit offset, msg and type must be non-empty, details must be a
// JSON object. Details is passed through unparsed; interpreting it is the
// variant resolver's job.
func Decode(raw []byte) (*Envelope, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.MalformedEnvelope("invalid JSON", err)
	}
	return fromWire(&w)
}

// DecodeTagged parses a stabilized envelope whose discriminator arrived as
// the callback's message-kind parameter. An explicit type field in the
// payload wins over the hint; everything else is validated as in Decode.
func DecodeTagged(tag string, raw []byte) (*Envelope, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.MalformedEnvelope("invalid JSON", err)
	}
	if w.Type == "" {
		w.Type = tag
	}
	return fromWire(&w)
}

// DecodeLegacy parses the pre-stabilization shape: a bare numeric message
// kind alongside a details blob with no type field. The numeric kind maps
// to its discriminator via the fixed legacy table; missing id and timestamp
// are synthesized so downstream stages see one envelope shape.
func DecodeLegacy(code int, raw []byte) (*Envelope, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.MalformedEnvelope("invalid JSON", err)
	}

	if w.Type == "" {
		w.Type = LegacyKind(code)
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Timestamp == "" {
		w.Timestamp = time.Now().Format(time.RFC3339Nano)
	}
	if w.Msg == "" {
		w.Msg = w.Type
	}
	if len(w.Details) == 0 {
		w.Details = json.RawMessage("{}")
	}
	return fromWire(&w)
}

func fromWire(w *wire) (*Envelope, error) {
	if w.ID == "" {
		return nil, errors.MalformedEnvelope("missing id", nil)
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, errors.MalformedEnvelope("id is not a valid UUID", err)
	}

	if w.Timestamp == "" {
		return nil, errors.MalformedEnvelope("missing timestamp", nil)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return nil, errors.MalformedEnvelope("timestamp is not RFC 3339", err)
	}

	if w.Msg == "" {
		return nil, errors.MalformedEnvelope("missing msg", nil)
	}
	if w.Type == "" {
		return nil, errors.MalformedEnvelope("missing type", nil)
	}

	if !isObject(w.Details) {
		return nil, errors.MalformedEnvelope("details must be a JSON object", nil)
	}

	return &Envelope{
		ID:        id,
		Timestamp: ts,
		Summary:   w.Msg,
		Type:      w.Type,
		Details:   w.Details,
	}, nil
}

// Encode produces the stabilized wire shape.
func (e *Envelope) Encode() ([]byte, error) {
	details := e.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	return json.Marshal(&wire{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Msg:       e.Summary,
		Type:      e.Type,
		Details:   details,
	})
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
