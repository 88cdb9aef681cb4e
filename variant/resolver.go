package variant

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/maago/notify-bridge/errors"
)

// DefaultMaxDepth bounds the nesting the resolver will follow. The protocol
// does not bound depth itself, so the limit stays configurable.
const DefaultMaxDepth = 32

// Resolver turns a (tag, details) pair into a typed Payload tree using a
// read-only Catalog. A Resolver is safe for concurrent use.
type Resolver struct {
	catalog  *Catalog
	maxDepth int
}

// NewResolver creates a resolver over catalog. maxDepth <= 0 selects
// DefaultMaxDepth.
func NewResolver(catalog *Catalog, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{catalog: catalog, maxDepth: maxDepth}
}

// Resolve interprets details under the given discriminator tag.
//
// The walk is iterative over the nesting, so input depth cannot grow the
// call stack. The only error it returns is depth_exceeded; every shape
// surprise degrades to a raw or unknown leaf instead of failing, so one
// uncatalogued or oddly shaped message never kills the stream.
func (r *Resolver) Resolve(tag string, details json.RawMessage) (Payload, error) {
	type hop struct {
		tag      string
		siblings map[string]any
	}
	var hops []hop

	path := []string{tag}
	curTag := tag
	curDetails := details

	var leaf *Leaf
	for depth := 0; ; depth++ {
		if depth > r.maxDepth {
			return nil, errors.DepthExceeded(path, r.maxDepth)
		}

		fields := objectFields(curDetails)
		kind, known := r.catalog.Lookup(curTag)
		nested := looksNested(fields)

		switch {
		case !known:
			leaf = &Leaf{NodeTag: curTag, Unknown: true, Raw: fields}
		case kind.Class == ClassContainer && nested:
			inner, innerDetails := nestedPair(fields)
			hops = append(hops, hop{
				tag:      curTag,
				siblings: siblingFields(kind.Siblings, fields),
			})
			path = append(path, inner)
			curTag = inner
			curDetails = innerDetails
			continue
		case kind.Class == ClassContainer:
			// Registered as container but the payload is terminal.
			// Runtime shape wins: expose raw fields.
			leaf = &Leaf{NodeTag: curTag, Raw: fields}
		case nested:
			// Registered as leaf but the payload looks nested.
			// Runtime shape wins here too.
			leaf = &Leaf{NodeTag: curTag, Raw: fields}
		default:
			leaf = parseLeaf(kind, fields)
		}
		break
	}

	var out Payload = leaf
	for i := len(hops) - 1; i >= 0; i-- {
		out = &Nested{NodeTag: hops[i].tag, Siblings: hops[i].siblings, Child: out}
	}
	return out, nil
}

// objectFields splits a JSON object into its raw members. Anything that is
// not an object yields an empty mapping; the decoder never fails on shape.
func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	fields := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return fields
	}
	// Ignore the error: non-object details terminate as an empty raw leaf.
	_ = json.Unmarshal(raw, &fields)
	return fields
}

// looksNested reports whether fields carry an inner type discriminator.
// A nested envelope needs a string "type"; "details" may be absent.
func looksNested(fields map[string]json.RawMessage) bool {
	raw, ok := fields["type"]
	if !ok {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s != ""
}

func nestedPair(fields map[string]json.RawMessage) (tag string, details json.RawMessage) {
	_ = json.Unmarshal(fields["type"], &tag)
	details = fields["details"]
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	return tag, details
}

// parseLeaf applies a leaf kind's schema. Any violation (missing required
// field, uncoercible value) degrades the whole leaf to raw fields rather
// than failing the message.
func parseLeaf(kind *Kind, fields map[string]json.RawMessage) *Leaf {
	parsed := make(map[string]any, len(kind.Fields))
	for _, f := range kind.Fields {
		raw, present := fields[f.Name]
		if !present {
			if f.Required {
				return &Leaf{NodeTag: kind.Tag, Raw: fields}
			}
			if f.Default != nil {
				parsed[f.Name] = f.Default
			}
			continue
		}
		v, err := coerce(f.Type, raw)
		if err != nil {
			return &Leaf{NodeTag: kind.Tag, Raw: fields}
		}
		parsed[f.Name] = v
	}
	return &Leaf{NodeTag: kind.Tag, Fields: parsed, Raw: fields}
}

// siblingFields coerces the declared sibling fields of a container hop.
// Undeclared siblings ride along decoded loosely; type and details are the
// nesting machinery and are excluded.
func siblingFields(declared []Field, fields map[string]json.RawMessage) map[string]any {
	out := map[string]any{}
	byName := make(map[string]Field, len(declared))
	for _, f := range declared {
		byName[f.Name] = f
	}
	for name, raw := range fields {
		if name == "type" || name == "details" {
			continue
		}
		if f, ok := byName[name]; ok {
			if v, err := coerce(f.Type, raw); err == nil {
				out[name] = v
				continue
			}
		}
		var loose any
		if err := json.Unmarshal(raw, &loose); err == nil {
			out[name] = loose
		}
	}
	return out
}

func coerce(ft FieldType, raw json.RawMessage) (any, error) {
	switch ft {
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "expected string")
		}
		return s, nil

	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b, nil
		}
		// Tolerate 0/1 and quoted booleans from older engine builds.
		switch string(raw) {
		case "0", `"false"`:
			return false, nil
		case "1", `"true"`:
			return true, nil
		}
		return nil, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "expected bool")

	case TypeInt:
		return coerceInt(raw)

	case TypeFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "expected number")
		}
		return f, nil

	case TypeDurationMS:
		n, err := coerceInt(raw)
		if err != nil {
			return nil, err
		}
		return time.Duration(n) * time.Millisecond, nil

	case TypeRaw:
		return json.RawMessage(raw), nil
	}
	return nil, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "unsupported field type")
}

func coerceInt(raw json.RawMessage) (int64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) {
			return 0, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "expected integer")
		}
		return int64(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.InvalidField(errors.PhaseResolve, nil, string(raw), "expected integer")
}
