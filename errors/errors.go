package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pipeline the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // envelope decoding
	PhaseResolve  Phase = "resolve"  // tagged variant resolution
	PhaseRegistry Phase = "registry" // token registration and lookup
	PhaseDispatch Phase = "dispatch" // queueing and delivery
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedEnvelope Kind = "malformed_envelope"
	KindFieldMissing      Kind = "field_missing"
	KindInvalidField      Kind = "invalid_field"
	KindUnknownVariant    Kind = "unknown_variant"
	KindStaleToken        Kind = "stale_token"
	KindQueueOverflow     Kind = "queue_overflow"
	KindDepthExceeded     Kind = "depth_exceeded"
	KindClosed            Kind = "closed"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Tag    string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Tag != "" {
		b.WriteString(": tag ")
		b.WriteString(e.Tag)
	}

	if e.Detail != "" {
		if e.Tag != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Tag sets the discriminator tag the error relates to
func (b *Builder) Tag(tag string) *Builder {
	b.err.Tag = tag
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedEnvelope creates an envelope parsing error
func MalformedEnvelope(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMalformedEnvelope,
		Detail: detail,
		Cause:  cause,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// InvalidField creates an invalid field value error
func InvalidField(phase Phase, path []string, value any, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidField,
		Path:   path,
		Value:  value,
		Detail: detail,
	}
}

// StaleToken creates a stale/unknown token error
func StaleToken(token uint64) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindStaleToken,
		Detail: fmt.Sprintf("token %#x not registered", token),
		Value:  token,
	}
}

// QueueOverflow creates a dispatch queue overflow error
func QueueOverflow(token uint64, dropped int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindQueueOverflow,
		Detail: fmt.Sprintf("queue full for token %#x, dropped %d", token, dropped),
		Value:  token,
	}
}

// DepthExceeded creates a nesting depth error
func DepthExceeded(path []string, max int) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDepthExceeded,
		Path:   path,
		Detail: fmt.Sprintf("nesting exceeds maximum depth %d", max),
	}
}

// Closed creates an error for operations on a closed component
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
