package variant

import (
	"github.com/maago/notify-bridge/errors"
)

// Class says whether a kind's details are terminal fields or a further
// nested tagged envelope.
type Class uint8

const (
	ClassLeaf Class = iota
	ClassContainer
)

// FieldType enumerates the coercions the resolver applies to leaf and
// sibling fields.
type FieldType uint8

const (
	TypeString FieldType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeDurationMS // integer milliseconds, surfaced as time.Duration
	TypeRaw        // verbatim json.RawMessage
)

// Field declares one named field of a kind's schema.
type Field struct {
	Default  any
	Name     string
	Type     FieldType
	Required bool
}

// Kind is the decoding rule registered for one discriminator tag.
//
// Leaf kinds declare Fields, the terminal named fields of their details.
// Container kinds declare Siblings, the fields that sit next to the nested
// type/details pair (for example taskchain).
type Kind struct {
	Tag      string
	Class    Class
	Fields   []Field
	Siblings []Field
}

// Catalog is the static tag to Kind mapping. It is read-only after
// construction and safe for concurrent lookups without synchronization.
type Catalog struct {
	kinds map[string]*Kind
}

// NewCatalog builds a catalog from the given kinds. Duplicate tags are
// rejected; an empty tag is rejected.
func NewCatalog(kinds ...*Kind) (*Catalog, error) {
	m := make(map[string]*Kind, len(kinds))
	for _, k := range kinds {
		if k.Tag == "" {
			return nil, errors.InvalidInput(errors.PhaseResolve, "kind with empty tag")
		}
		if _, dup := m[k.Tag]; dup {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Tag(k.Tag).
				Detail("duplicate kind registration").
				Build()
		}
		m[k.Tag] = k
	}
	return &Catalog{kinds: m}, nil
}

// Lookup returns the kind registered for tag.
func (c *Catalog) Lookup(tag string) (*Kind, bool) {
	k, ok := c.kinds[tag]
	return k, ok
}

// Len returns the number of registered kinds.
func (c *Catalog) Len() int {
	return len(c.kinds)
}

// Builtin returns the catalog of protocol kinds the engine emits today.
// Tags absent from this catalog still decode, as UnknownVariant leaves.
func Builtin() *Catalog {
	c, err := NewCatalog(
		&Kind{Tag: "AsyncCallInfo", Class: ClassLeaf, Fields: []Field{
			{Name: "uuid", Type: TypeString},
			{Name: "what", Type: TypeString},
			{Name: "async_call_id", Type: TypeInt},
			{Name: "ret", Type: TypeBool, Required: true},
			{Name: "cost", Type: TypeDurationMS, Required: true},
		}},
		&Kind{Tag: "InternalError", Class: ClassLeaf, Fields: []Field{
			{Name: "what", Type: TypeString},
			{Name: "why", Type: TypeString},
			{Name: "details", Type: TypeRaw},
		}},
		&Kind{Tag: "InitFailed", Class: ClassLeaf, Fields: []Field{
			{Name: "what", Type: TypeString},
			{Name: "why", Type: TypeString},
			{Name: "details", Type: TypeRaw},
		}},
		&Kind{Tag: "ConnectionInfo", Class: ClassLeaf, Fields: []Field{
			{Name: "what", Type: TypeString, Required: true},
			{Name: "why", Type: TypeString},
			{Name: "uuid", Type: TypeString},
			{Name: "details", Type: TypeRaw},
		}},
		&Kind{Tag: "AllTasksCompleted", Class: ClassLeaf, Fields: []Field{
			{Name: "taskchain", Type: TypeString},
			{Name: "uuid", Type: TypeString},
			{Name: "finished_tasks", Type: TypeRaw},
		}},
		&Kind{Tag: "Destroyed", Class: ClassLeaf, Fields: []Field{
			{Name: "uuid", Type: TypeString},
		}},

		containerKind("TaskChainError"),
		containerKind("TaskChainStart"),
		containerKind("TaskChainCompleted"),
		containerKind("TaskChainExtraInfo"),
		containerKind("TaskChainStopped"),

		subTaskKind("SubTaskError"),
		subTaskKind("SubTaskStart"),
		subTaskKind("SubTaskCompleted"),
		subTaskKind("SubTaskExtraInfo"),
		subTaskKind("SubTaskStopped"),
	)
	if err != nil {
		// The builtin table is fixed; a failure here is a programming error.
		panic(err)
	}
	return c
}

func containerKind(tag string) *Kind {
	return &Kind{Tag: tag, Class: ClassContainer, Siblings: []Field{
		{Name: "taskchain", Type: TypeString},
		{Name: "uuid", Type: TypeString},
		{Name: "taskid", Type: TypeInt},
	}}
}

func subTaskKind(tag string) *Kind {
	return &Kind{Tag: tag, Class: ClassContainer, Siblings: []Field{
		{Name: "subtask", Type: TypeString},
		{Name: "class", Type: TypeString},
		{Name: "taskchain", Type: TypeString},
	}}
}
