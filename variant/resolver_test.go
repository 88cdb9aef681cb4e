package variant

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/maago/notify-bridge/errors"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(Builtin(), 0)
}

func TestResolve_LeafKind(t *testing.T) {
	r := newTestResolver(t)

	p, err := r.Resolve("AsyncCallInfo", []byte(`{"ret":true,"cost":600,"what":"Screencap"}`))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	leaf, ok := p.(*Leaf)
	if !ok {
		t.Fatalf("expected *Leaf, got %T", p)
	}
	if leaf.Unknown {
		t.Error("catalogued kind should not be unknown")
	}
	if got := leaf.Bool("ret", false); !got {
		t.Error("ret should coerce to true")
	}
	if got := leaf.Duration("cost", 0); got != 600*time.Millisecond {
		t.Errorf("cost should coerce to 600ms, got %s", got)
	}
	if got := leaf.String("what", ""); got != "Screencap" {
		t.Errorf("what mismatch: %q", got)
	}
}

// nestedPayload builds `hops` container levels ending in an AsyncCallInfo leaf,
// returning the outer tag, the outer details, and the full expected path.
func nestedPayload(hops int) (tag string, details []byte, path []string) {
	leafTag := "AsyncCallInfo"
	inner := map[string]any{"ret": true, "cost": 600}

	if hops == 0 {
		raw, _ := json.Marshal(inner)
		return leafTag, raw, []string{leafTag}
	}

	containers := make([]string, hops)
	containers[0] = "TaskChainStart"
	for i := 1; i < hops; i++ {
		containers[i] = "SubTaskExtraInfo"
	}

	cur := map[string]any{"type": leafTag, "details": inner, "subtask": fmt.Sprintf("hop%d", hops-1)}
	for i := hops - 1; i >= 1; i-- {
		cur = map[string]any{"type": containers[i], "details": cur, "subtask": fmt.Sprintf("hop%d", i-1)}
	}
	cur["taskchain"] = "Fight"
	delete(cur, "subtask")
	raw, _ := json.Marshal(cur)

	path = append([]string{containers[0]}, containers[1:]...)
	path = append(path, leafTag)
	return containers[0], raw, path
}

func TestResolve_NestingDepths(t *testing.T) {
	r := newTestResolver(t)

	for hops := 0; hops <= 5; hops++ {
		t.Run(fmt.Sprintf("hops=%d", hops), func(t *testing.T) {
			tag, details, wantPath := nestedPayload(hops)

			p, err := r.Resolve(tag, details)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}

			var gotPath []string
			cur := p
			for {
				gotPath = append(gotPath, cur.Tag())
				n, ok := cur.(*Nested)
				if !ok {
					break
				}
				cur = n.Child
			}

			if len(gotPath) != len(wantPath) {
				t.Fatalf("path length %d, want %d (%v vs %v)", len(gotPath), len(wantPath), gotPath, wantPath)
			}
			for i := range wantPath {
				if gotPath[i] != wantPath[i] {
					t.Errorf("path[%d] = %q, want %q", i, gotPath[i], wantPath[i])
				}
			}

			leaf, ok := cur.(*Leaf)
			if !ok {
				t.Fatalf("terminal payload is %T, want *Leaf", cur)
			}
			if !leaf.Bool("ret", false) || leaf.Duration("cost", 0) != 600*time.Millisecond {
				t.Errorf("innermost fields did not survive: %+v", leaf.Fields)
			}
		})
	}
}

func TestResolve_UnknownTag_TopLevel(t *testing.T) {
	r := newTestResolver(t)

	p, err := r.Resolve("FutureKind", []byte(`{"alpha":1,"beta":"x"}`))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	leaf, ok := p.(*Leaf)
	if !ok {
		t.Fatalf("expected *Leaf, got %T", p)
	}
	if !leaf.Unknown {
		t.Error("uncatalogued tag should mark the leaf unknown")
	}
	if string(leaf.Raw["alpha"]) != "1" || string(leaf.Raw["beta"]) != `"x"` {
		t.Errorf("raw fields not preserved verbatim: %v", leaf.Raw)
	}
}

func TestResolve_UnknownTag_NestedLevel(t *testing.T) {
	r := newTestResolver(t)

	details := []byte(`{"taskchain":"Fight","type":"FutureKind","details":{"alpha":1}}`)
	p, err := r.Resolve("TaskChainExtraInfo", details)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	n, ok := p.(*Nested)
	if !ok {
		t.Fatalf("expected *Nested, got %T", p)
	}
	leaf, ok := n.Child.(*Leaf)
	if !ok {
		t.Fatalf("expected *Leaf child, got %T", n.Child)
	}
	if !leaf.Unknown || leaf.NodeTag != "FutureKind" {
		t.Errorf("nested unknown tag mishandled: %+v", leaf)
	}
	if string(leaf.Raw["alpha"]) != "1" {
		t.Errorf("nested raw fields not preserved: %v", leaf.Raw)
	}
}

func TestResolve_ShapeConflicts(t *testing.T) {
	r := newTestResolver(t)

	t.Run("container tag with terminal payload", func(t *testing.T) {
		p, err := r.Resolve("TaskChainStart", []byte(`{"taskchain":"Fight"}`))
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		leaf, ok := p.(*Leaf)
		if !ok {
			t.Fatalf("expected raw *Leaf, got %T", p)
		}
		if leaf.Unknown {
			t.Error("catalogued tag should not be unknown")
		}
		if leaf.Fields != nil {
			t.Error("shape conflict should yield raw fields only")
		}
		if string(leaf.Raw["taskchain"]) != `"Fight"` {
			t.Errorf("raw fields missing: %v", leaf.Raw)
		}
	})

	t.Run("leaf tag with nested payload", func(t *testing.T) {
		p, err := r.Resolve("AsyncCallInfo", []byte(`{"type":"SubTaskStart","details":{}}`))
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		leaf, ok := p.(*Leaf)
		if !ok {
			t.Fatalf("expected raw *Leaf, got %T", p)
		}
		if leaf.Fields != nil {
			t.Error("runtime shape should win: raw fields only")
		}
	})
}

func TestResolve_MissingRequiredField_DegradesToRaw(t *testing.T) {
	r := newTestResolver(t)

	p, err := r.Resolve("AsyncCallInfo", []byte(`{"cost":600}`))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	leaf := p.(*Leaf)
	if leaf.Fields != nil {
		t.Error("missing required field should degrade to raw leaf")
	}
	if string(leaf.Raw["cost"]) != "600" {
		t.Errorf("raw preserved: %v", leaf.Raw)
	}
}

func TestResolve_NonObjectDetails(t *testing.T) {
	r := newTestResolver(t)

	p, err := r.Resolve("Destroyed", []byte(`42`))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	leaf, ok := p.(*Leaf)
	if !ok {
		t.Fatalf("expected *Leaf, got %T", p)
	}
	if leaf.NodeTag != "Destroyed" {
		t.Errorf("tag mismatch: %q", leaf.NodeTag)
	}
}

func TestResolve_DepthExceeded(t *testing.T) {
	r := NewResolver(Builtin(), 3)

	_, details, _ := nestedPayload(5)
	_, err := r.Resolve("TaskChainStart", details)
	if err == nil {
		t.Fatal("expected depth_exceeded")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindDepthExceeded}) {
		t.Errorf("expected depth_exceeded, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		want    any
		name    string
		raw     string
		ft      FieldType
		wantErr bool
	}{
		{name: "string", ft: TypeString, raw: `"x"`, want: "x"},
		{name: "string from number fails", ft: TypeString, raw: `5`, wantErr: true},
		{name: "bool", ft: TypeBool, raw: `true`, want: true},
		{name: "bool from 1", ft: TypeBool, raw: `1`, want: true},
		{name: "bool from quoted", ft: TypeBool, raw: `"false"`, want: false},
		{name: "bool from junk fails", ft: TypeBool, raw: `"maybe"`, wantErr: true},
		{name: "int", ft: TypeInt, raw: `42`, want: int64(42)},
		{name: "int from string", ft: TypeInt, raw: `"42"`, want: int64(42)},
		{name: "int from fraction fails", ft: TypeInt, raw: `4.5`, wantErr: true},
		{name: "float", ft: TypeFloat, raw: `4.5`, want: 4.5},
		{name: "duration ms", ft: TypeDurationMS, raw: `1500`, want: 1500 * time.Millisecond},
		{name: "raw", ft: TypeRaw, raw: `{"a":1}`, want: json.RawMessage(`{"a":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.ft, json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("coerce error: %v", err)
			}
			switch want := tt.want.(type) {
			case json.RawMessage:
				if string(got.(json.RawMessage)) != string(want) {
					t.Errorf("got %s, want %s", got, want)
				}
			default:
				if got != tt.want {
					t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
				}
			}
		})
	}
}
