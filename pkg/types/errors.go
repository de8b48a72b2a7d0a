package types

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindRange     ErrKind = iota // index or length outside an artifact's content
	ErrKindLayout                   // declared layout does not match its padding target
	ErrKindDuplicate                // byte-identical top-level content ingested twice
	ErrKindPointer                  // pointer target holds no claimed structure
	ErrKindFormat                   // bytes do not match what a field kind expects
	ErrKindUsage                    // programming-contract violation by the caller
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindRange:
		return "range"
	case ErrKindLayout:
		return "layout"
	case ErrKindDuplicate:
		return "duplicate"
	case ErrKindPointer:
		return "pointer"
	case ErrKindFormat:
		return "format"
	case ErrKindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind and message, so a sentinel
// still matches after being re-created with a cause attached via Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// Wrap returns a copy of the sentinel e carrying cause. errors.Is(result, e)
// still holds, and the cause is reachable through errors.Unwrap.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Err: cause}
}

// Sentinels commonly returned by the core.
var (
	// ErrOutOfRange indicates a slice or bit access beyond the content length.
	ErrOutOfRange = &Error{Kind: ErrKindRange, Msg: "out of range"}
	// ErrEmptyInput indicates zero-length content; empty artifacts are not represented.
	ErrEmptyInput = &Error{Kind: ErrKindRange, Msg: "empty input"}
	// ErrShortStruct indicates a struct's pad target is smaller than its content.
	ErrShortStruct = &Error{Kind: ErrKindLayout, Msg: "struct longer than pad target"}
	// ErrOverlongStruct indicates a padded struct would run past the end of the artifact.
	ErrOverlongStruct = &Error{Kind: ErrKindLayout, Msg: "padded struct runs past end"}
	// ErrDuplicateTopLevel indicates byte-identical top-level content was ingested twice.
	ErrDuplicateTopLevel = &Error{Kind: ErrKindDuplicate, Msg: "duplicate top-level artifact"}
	// ErrUnresolvedPointer indicates a pointer target address holds no claimed leaf.
	ErrUnresolvedPointer = &Error{Kind: ErrKindPointer, Msg: "unresolved pointer"}
	// ErrConstMismatch indicates a constant field (magic, signature) held another value.
	ErrConstMismatch = &Error{Kind: ErrKindFormat, Msg: "constant mismatch"}
	// ErrBadWidth indicates a field width the field kind cannot decode.
	ErrBadWidth = &Error{Kind: ErrKindUsage, Msg: "unsupported field width"}
)
