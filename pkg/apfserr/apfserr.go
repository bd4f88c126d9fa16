// Package apfserr defines the tagged error kinds the core reports to its
// host, collapsing the several raw errno-shaped failures the original C
// implementation mixed together into one type the rest of the module can
// switch on, with the host error code attached only at the boundary.
package apfserr

import "fmt"

// Kind is one of the six error kinds the core ever reports.
type Kind int

const (
	// Io means the block reader itself failed; propagated verbatim.
	Io Kind = iota
	// Corrupt means a checksum, magic, or structural invariant didn't hold.
	Corrupt
	// InvalidOption means a mount option or volume selector was rejected.
	InvalidOption
	// ReadOnly means the caller asked for a write against a read-only mount.
	ReadOnly
	// NotFound means a traversal completed but no entry qualified.
	NotFound
	// NoMemory means an allocation failed.
	NoMemory
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Corrupt:
		return "corrupt"
	case InvalidOption:
		return "invalid-option"
	case ReadOnly:
		return "read-only"
	case NotFound:
		return "not-found"
	case NoMemory:
		return "no-memory"
	default:
		return "unknown"
	}
}

// Error is the core's error type: a kind, a one-line diagnostic naming what
// check failed, and the wrapped cause (if any).
type Error struct {
	Kind   Kind
	Object string // object id or other identifying detail, for diagnostics
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Object != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Msg, e.Object, e.Cause)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Object)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, object, msg string) *Error {
	return &Error{Kind: kind, Object: object, Msg: msg}
}

// Wrap builds an Error around an underlying cause, typically a block-reader
// failure that should surface to the host unchanged in kind.
func Wrap(kind Kind, object, msg string, cause error) *Error {
	return &Error{Kind: kind, Object: object, Msg: msg, Cause: cause}
}

// Corruptf builds a Corrupt error with a formatted diagnostic.
func Corruptf(object, format string, args ...any) *Error {
	return New(Corrupt, object, fmt.Sprintf(format, args...))
}

// Is reports whether err is an *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// ErrnoName maps a Kind to the host errno symbol the boundary layer reports.
// The mapping is fixed by the specification: Io -> EIO, Corrupt ->
// EFSCORRUPTED, InvalidOption -> EINVAL, ReadOnly -> EROFS, NoMemory -> ENOMEM.
// NotFound has no errno of its own; callers translate it to whatever their
// layer means by "doesn't exist" (e.g. ENOENT at the VFS boundary).
func ErrnoName(kind Kind) string {
	switch kind {
	case Io:
		return "EIO"
	case Corrupt:
		return "EFSCORRUPTED"
	case InvalidOption:
		return "EINVAL"
	case ReadOnly:
		return "EROFS"
	case NoMemory:
		return "ENOMEM"
	default:
		return ""
	}
}
