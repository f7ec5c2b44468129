package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which operation was running when the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // configuration parsing and validation
	PhaseCreate    Phase = "create"    // engine startup
	PhaseAllocate  Phase = "allocate"  // object allocation
	PhaseLookup    Phase = "lookup"    // address and handle resolution
	PhasePopulate  Phase = "populate"  // chunk population
	PhaseWriteback Phase = "writeback" // chunk eviction and writeback
	PhaseReset     Phase = "reset"     // object reset
	PhaseFree      Phase = "free"      // object release
	PhaseEvent     Phase = "event"     // event listener management
	PhaseShutdown  Phase = "shutdown"  // engine shutdown
	PhaseBoundary  Phase = "boundary"  // foreign call boundary
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidConfig Kind = "invalid_config"
	KindInvalidInput  Kind = "invalid_input"
	KindOverflow      Kind = "overflow"
	KindResource      Kind = "resource"
	KindClosed        Kind = "closed"
	KindNotFound      Kind = "not_found"
	KindNilHandle     Kind = "nil_handle"
	KindFreed         Kind = "freed"
	KindPopulate      Kind = "populate_failed"
	KindFault         Kind = "internal_fault"
	KindPoisoned      Kind = "poisoned"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Object uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Object != 0 {
		fmt.Fprintf(&b, " (object %d)", e.Object)
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Op sets the failing operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Object sets the affected object id
func (b *Builder) Object(id uint64) *Builder {
	b.err.Object = id
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

// KindOf returns the Kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFault reports whether err is an internal fault rather than an ordinary
// failure.
func IsFault(err error) bool {
	switch KindOf(err) {
	case KindFault, KindPoisoned:
		return true
	}
	return false
}

// Convenience constructors for common error patterns

// InvalidConfig creates a configuration error
func InvalidConfig(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindInvalidConfig).Detail(detail, args...).Build()
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Overflow creates a size overflow error
func Overflow(phase Phase, what string, a, b uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("%s overflows: %d * %d", what, a, b),
		Value:  [2]uint64{a, b},
	}
}

// Resource creates an error for storage, address space or paging failures
func Resource(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindResource,
		Detail: detail,
		Cause:  cause,
	}
}

// Closed creates an error for use after shutdown
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is shut down", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NilHandle creates an error for an operation on a null handle
func NilHandle(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilHandle,
		Detail: fmt.Sprintf("%s handle is null", what),
	}
}

// Freed creates an error for an operation on a released object
func Freed(phase Phase, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFreed,
		Object: id,
		Detail: "object has been freed",
	}
}

// PopulateFailed creates an error for a population callback that reported failure
func PopulateFailed(id uint64, start, end uint64, cause error) *Error {
	return &Error{
		Phase:  PhasePopulate,
		Kind:   KindPopulate,
		Object: id,
		Detail: fmt.Sprintf("populate elements [%d, %d)", start, end),
		Cause:  cause,
	}
}

// Fault creates an internal fault error from a recovered panic value
func Fault(phase Phase, op string, recovered any) *Error {
	e := &Error{
		Phase:  phase,
		Kind:   KindFault,
		Op:     op,
		Value:  recovered,
		Detail: fmt.Sprintf("panic: %v", recovered),
	}
	if err, ok := recovered.(error); ok {
		e.Cause = err
	}
	return e
}

// Poisoned creates an error for a resource contaminated by an earlier fault
func Poisoned(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPoisoned,
		Detail: fmt.Sprintf("%s is poisoned by an earlier fault", what),
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
