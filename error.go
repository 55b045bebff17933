package bleadv

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the device lifecycle and configuration paths.
// Wrapped errors carry extra context; use errors.Cause to test identity.
var (
	// ErrEnableFailed is returned by Init when the underlying BT
	// controller subsystem refuses to come up.
	ErrEnableFailed = errors.New("bt controller enable failed")

	// ErrInvalidAddressLength is returned when a peer address is not
	// exactly 6 bytes.
	ErrInvalidAddressLength = errors.New("peer address must be 6 bytes")

	// ErrUnexpectedArguments is returned by the singleton accessor when
	// it is handed construction arguments it does not accept.
	ErrUnexpectedArguments = errors.New("unexpected arguments")

	// ErrNotInitialized is returned by operations that need an enabled
	// controller before Init has completed.
	ErrNotInitialized = errors.New("device not initialized")

	// ErrTransportDegraded reports that the transport never signalled
	// readiness within the poll budget and the frame was sent anyway.
	// It is delivered through the error handler, not returned.
	ErrTransportDegraded = errors.New("transport not ready, sending anyway")
)

// A FieldError reports a configuration field whose supplied value has an
// unsupported type or shape. The call it aborts applies no changes.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value for field %q", e.Field)
}
