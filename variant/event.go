package variant

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/maago/notify-bridge/envelope"
)

// Event is the terminal product of decoding: envelope identity plus the
// resolved payload tree. This is what handlers receive.
type Event struct {
	Timestamp time.Time
	Root      Payload
	Summary   string
	ID        uuid.UUID
}

// NewEvent combines a validated envelope with its resolved payload.
func NewEvent(env *envelope.Envelope, root Payload) *Event {
	return &Event{
		ID:        env.ID,
		Timestamp: env.Timestamp,
		Summary:   env.Summary,
		Root:      root,
	}
}

// Path returns the ordered discriminator path from the outer envelope type
// down to the leaf.
func (e *Event) Path() []string {
	var path []string
	for p := e.Root; p != nil; {
		path = append(path, p.Tag())
		n, ok := p.(*Nested)
		if !ok {
			break
		}
		p = n.Child
	}
	return path
}

// Leaf returns the terminal payload.
func (e *Event) Leaf() *Leaf {
	p := e.Root
	for {
		n, ok := p.(*Nested)
		if !ok {
			break
		}
		p = n.Child
	}
	l, _ := p.(*Leaf)
	return l
}

// LeafTag returns the terminal discriminator, or the empty string for a
// nil payload.
func (e *Event) LeafTag() string {
	if l := e.Leaf(); l != nil {
		return l.NodeTag
	}
	return ""
}

// Unknown reports whether the terminal payload is an uncatalogued variant.
func (e *Event) Unknown() bool {
	l := e.Leaf()
	return l != nil && l.Unknown
}

// Sibling searches the hops outermost-first for a named sibling field,
// e.g. the taskchain a sub-task event belongs to.
func (e *Event) Sibling(name string) (any, bool) {
	for p := e.Root; p != nil; {
		n, ok := p.(*Nested)
		if !ok {
			return nil, false
		}
		if v, ok := n.Sibling(name); ok {
			return v, true
		}
		p = n.Child
	}
	return nil, false
}

// Typed views over the built-in leaf kinds. Each view converts lazily and
// reports false when the event is not of that kind or did not match the
// schema.

// AsyncCallInfo reports completion of an asynchronous engine call.
type AsyncCallInfo struct {
	UUID        string
	What        string
	AsyncCallID int64
	Cost        time.Duration
	Ret         bool
}

// AsyncCallInfo converts the event when its leaf is AsyncCallInfo.
func (e *Event) AsyncCallInfo() (AsyncCallInfo, bool) {
	l := e.Leaf()
	if l == nil || l.NodeTag != "AsyncCallInfo" || l.Fields == nil {
		return AsyncCallInfo{}, false
	}
	return AsyncCallInfo{
		UUID:        l.String("uuid", ""),
		What:        l.String("what", ""),
		AsyncCallID: l.Int("async_call_id", 0),
		Ret:         l.Bool("ret", false),
		Cost:        l.Duration("cost", 0),
	}, true
}

// ConnectionInfo reports a device connection state change.
type ConnectionInfo struct {
	What    string
	Why     string
	UUID    string
	Details json.RawMessage
}

// ConnectionInfo converts the event when its leaf is ConnectionInfo.
func (e *Event) ConnectionInfo() (ConnectionInfo, bool) {
	l := e.Leaf()
	if l == nil || l.NodeTag != "ConnectionInfo" || l.Fields == nil {
		return ConnectionInfo{}, false
	}
	info := ConnectionInfo{
		What: l.String("what", ""),
		Why:  l.String("why", ""),
		UUID: l.String("uuid", ""),
	}
	if raw, ok := l.Fields["details"].(json.RawMessage); ok {
		info.Details = raw
	}
	return info, true
}

// TaskChainStep identifies the outermost task-chain hop of a nested event.
type TaskChainStep struct {
	Kind      string
	TaskChain string
	UUID      string
	TaskID    int64
}

// TaskChainStep extracts the outermost TaskChain* hop, when present.
func (e *Event) TaskChainStep() (TaskChainStep, bool) {
	for p := e.Root; p != nil; {
		n, ok := p.(*Nested)
		if !ok {
			return TaskChainStep{}, false
		}
		if sibling, ok := n.Siblings["taskchain"]; ok {
			step := TaskChainStep{Kind: n.NodeTag}
			step.TaskChain, _ = sibling.(string)
			step.UUID, _ = n.Siblings["uuid"].(string)
			step.TaskID, _ = n.Siblings["taskid"].(int64)
			return step, true
		}
		p = n.Child
	}
	return TaskChainStep{}, false
}

// SubTaskDetail identifies the innermost sub-task hop of a nested event.
type SubTaskDetail struct {
	Kind      string
	SubTask   string
	Class     string
	TaskChain string
}

// SubTaskDetail extracts the deepest SubTask* hop, when present.
func (e *Event) SubTaskDetail() (SubTaskDetail, bool) {
	var found *Nested
	for p := e.Root; p != nil; {
		n, ok := p.(*Nested)
		if !ok {
			break
		}
		if _, ok := n.Siblings["subtask"]; ok {
			found = n
		}
		p = n.Child
	}
	if found == nil {
		return SubTaskDetail{}, false
	}
	d := SubTaskDetail{Kind: found.NodeTag}
	d.SubTask, _ = found.Siblings["subtask"].(string)
	d.Class, _ = found.Siblings["class"].(string)
	d.TaskChain, _ = found.Siblings["taskchain"].(string)
	return d, true
}
