package envelope

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/maago/notify-bridge/errors"
)

const validRaw = `{
	"id": "7d444840-9dc0-11d1-b245-5ffdce74fad2",
	"timestamp": "2024-06-01T12:30:45.123+08:00",
	"msg": "async call finished",
	"type": "AsyncCallInfo",
	"details": {"ret": true, "cost": 600}
}`

func TestDecode_Valid(t *testing.T) {
	env, err := Decode([]byte(validRaw))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if env.ID != uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2") {
		t.Errorf("unexpected id: %s", env.ID)
	}
	if env.Summary != "async call finished" {
		t.Errorf("unexpected summary: %q", env.Summary)
	}
	if env.Type != "AsyncCallInfo" {
		t.Errorf("unexpected type: %q", env.Type)
	}

	_, offset := env.Timestamp.Zone()
	if offset != 8*3600 {
		t.Errorf("expected +08:00 offset, got %d seconds", offset)
	}
	if !strings.Contains(string(env.Details), `"cost": 600`) {
		t.Errorf("details not passed through raw: %s", env.Details)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing id", `{"timestamp":"2024-06-01T12:00:00Z","msg":"m","type":"T","details":{}}`},
		{"bad uuid", `{"id":"not-a-uuid","timestamp":"2024-06-01T12:00:00Z","msg":"m","type":"T","details":{}}`},
		{"missing timestamp", `{"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","msg":"m","type":"T","details":{}}`},
		{"bad timestamp", `{"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","timestamp":"yesterday","msg":"m","type":"T","details":{}}`},
		{"empty msg", `{"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","timestamp":"2024-06-01T12:00:00Z","msg":"","type":"T","details":{}}`},
		{"empty type", `{"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","timestamp":"2024-06-01T12:00:00Z","msg":"m","details":{}}`},
		{"details not object", `{"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","timestamp":"2024-06-01T12:00:00Z","msg":"m","type":"T","details":[1,2]}`},
	}

	sentinel := &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindMalformedEnvelope}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !stderrors.Is(err, sentinel) {
				t.Errorf("expected malformed_envelope, got %v", err)
			}
		})
	}
}

func TestDecodeLegacy_Normalizes(t *testing.T) {
	env, err := DecodeLegacy(0, []byte(`{"details":{"ret":true,"cost":600}}`))
	if err != nil {
		t.Fatalf("DecodeLegacy error: %v", err)
	}

	if env.Type != "AsyncCallInfo" {
		t.Errorf("legacy code 0 should map to AsyncCallInfo, got %q", env.Type)
	}
	if env.ID == uuid.Nil {
		t.Error("expected synthesized id")
	}
	if env.Timestamp.IsZero() {
		t.Error("expected synthesized timestamp")
	}
	if env.Summary == "" {
		t.Error("expected synthesized summary")
	}
}

func TestDecodeLegacy_ExplicitFieldsWin(t *testing.T) {
	env, err := DecodeLegacy(3, []byte(validRaw))
	if err != nil {
		t.Fatalf("DecodeLegacy error: %v", err)
	}
	// The payload already carries a type; the numeric hint must not override it.
	if env.Type != "AsyncCallInfo" {
		t.Errorf("explicit type should win over legacy code, got %q", env.Type)
	}
}

func TestLegacyKind_Unknown(t *testing.T) {
	tag := LegacyKind(9999)
	if !strings.HasPrefix(tag, UnknownVariantTag) {
		t.Errorf("unknown code should map to %s, got %q", UnknownVariantTag, tag)
	}
	if IsLegacyKind(9999) {
		t.Error("9999 should not be a known legacy kind")
	}
	if !IsLegacyKind(204) {
		t.Error("204 should be a known legacy kind")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	orig := &Envelope{
		ID:        uuid.New(),
		Timestamp: time.Date(2024, 6, 1, 12, 30, 45, 0, time.FixedZone("", 8*3600)),
		Summary:   "task chain started",
		Type:      "TaskChainStart",
		Details:   []byte(`{"taskchain":"Fight"}`),
	}

	raw, err := orig.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if back.ID != orig.ID || back.Summary != orig.Summary || back.Type != orig.Type {
		t.Errorf("round trip mismatch: %+v vs %+v", back, orig)
	}
	if !back.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("timestamp mismatch: %s vs %s", back.Timestamp, orig.Timestamp)
	}
}
