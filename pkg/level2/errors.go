package level2

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateExtension is returned when creating an extension whose
	// name is already registered.
	ErrDuplicateExtension = errors.New("duplicate extension")

	// ErrUnknownExtension is returned when mutating or deleting an
	// extension that does not exist.
	ErrUnknownExtension = errors.New("unknown extension")

	// ErrTypeMismatch is returned when a payload's variant does not match
	// the extension's declared type.
	ErrTypeMismatch = errors.New("payload type mismatch")
)

// UnsupportedTypeError aborts an encode that reached an extension whose
// declared type the codec cannot serialise. No partial output is produced.
type UnsupportedTypeError struct {
	Ext  string
	Type ExtType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("level2: cannot serialise extension %q of declared type %s", e.Ext, e.Type)
}

// WidenRetryError reports that re-encoding a boolean image after widening it
// to float failed. Orig is the writer error that triggered the recovery,
// Retry the error from the widened attempt.
type WidenRetryError struct {
	Ext   string
	Orig  error
	Retry error
}

func (e *WidenRetryError) Error() string {
	return fmt.Sprintf("level2: extension %q: bool widen retry failed: %v (original: %v)", e.Ext, e.Retry, e.Orig)
}

func (e *WidenRetryError) Unwrap() []error {
	return []error{e.Retry, e.Orig}
}
