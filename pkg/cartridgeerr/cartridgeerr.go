// Package cartridgeerr defines the error taxonomy shared by every layer of
// a cartridge container: the page layer, allocator, catalog, codec,
// façade, and VFS adapter all return errors of this shape so that callers
// can distinguish error kinds with errors.As regardless of which layer
// raised them.
package cartridgeerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which class of failure occurred. Callers should switch
// on Kind rather than compare error strings.
type Kind int

// The error kinds from the container's failure taxonomy.
const (
	Unknown Kind = iota
	InvalidMagic
	UnsupportedVersion
	CorruptedHeader
	InvalidSlug
	InvalidPath
	InvalidBlockSize
	NotFound
	AccessDenied
	OutOfSpace
	CatalogFull
	AllocatorCorruption
	AllocatorDesync
	ChecksumMismatch
	DecryptionFailed
	IO
)

func (k Kind) String() string {
	switch k {
	case InvalidMagic:
		return "InvalidMagic"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case CorruptedHeader:
		return "CorruptedHeader"
	case InvalidSlug:
		return "InvalidSlug"
	case InvalidPath:
		return "InvalidPath"
	case InvalidBlockSize:
		return "InvalidBlockSize"
	case NotFound:
		return "NotFound"
	case AccessDenied:
		return "AccessDenied"
	case OutOfSpace:
		return "OutOfSpace"
	case CatalogFull:
		return "CatalogFull"
	case AllocatorCorruption:
		return "AllocatorCorruption"
	case AllocatorDesync:
		return "AllocatorDesync"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case DecryptionFailed:
		return "DecryptionFailed"
	case IO:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across package boundaries.
// Path and BlockID are optional context, populated when the failing
// operation concerned a specific catalog entry or block.
type Error struct {
	Kind     Kind
	Path     string
	BlockID  int64
	HasBlock bool
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.HasBlock:
		return fmt.Sprintf("cartridge: %s: path %q block %d: %v", e.Kind, e.Path, e.BlockID, e.Cause)
	case e.Path != "":
		if e.Cause != nil {
			return fmt.Sprintf("cartridge: %s: path %q: %v", e.Kind, e.Path, e.Cause)
		}
		return fmt.Sprintf("cartridge: %s: path %q", e.Kind, e.Path)
	case e.HasBlock:
		return fmt.Sprintf("cartridge: %s: block %d: %v", e.Kind, e.BlockID, e.Cause)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("cartridge: %s: %v", e.Kind, e.Cause)
		}
		return fmt.Sprintf("cartridge: %s", e.Kind)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, letting
// callers write errors.Is(err, cartridgeerr.New(cartridgeerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a bare *Error of the given kind.
func New(kind Kind, path string) *Error {
	return &Error{Kind: kind, Path: path}
}

// Wrap builds a *Error of the given kind wrapping cause. cause is given a
// stack trace via github.com/pkg/errors if it doesn't already carry one,
// so %+v on the result prints the originating call site during
// development while errors.As still reaches this *Error directly.
func Wrap(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: withStack(cause)}
}

// WrapBlock builds a *Error tied to a specific block id.
func WrapBlock(kind Kind, blockID int64, cause error) *Error {
	return &Error{Kind: kind, BlockID: blockID, HasBlock: true, Cause: withStack(cause)}
}

func withStack(cause error) error {
	if cause == nil {
		return nil
	}
	if _, ok := cause.(interface{ StackTrace() errors.StackTrace }); ok {
		return cause
	}
	return errors.WithStack(cause)
}

// NotFoundErr is a convenience constructor for the common NotFound case.
func NotFoundErr(path string) *Error {
	return New(NotFound, path)
}

// OutOfSpaceErr is a convenience constructor for the common OutOfSpace case.
func OutOfSpaceErr() *Error {
	return New(OutOfSpace, "")
}

// Of reports the Kind of err if it is, or wraps, a *Error, and Unknown
// otherwise.
func Of(err error) Kind {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return Unknown
	}
	return e.Kind
}
