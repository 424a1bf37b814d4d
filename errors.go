package dynamicstore

import "errors"

// Common errors returned by Engine operations.
var (
	// ErrInvalidIndex is returned when an ArrayIndex is zero, out of
	// range, or names a slot that is currently on the free list.
	ErrInvalidIndex = errors.New("dynamicstore: invalid array index")

	// ErrOutOfRange is returned when a read or write would touch bytes
	// outside the array's current size.
	ErrOutOfRange = errors.New("dynamicstore: offset out of range")

	// ErrUserMetadataTooLarge is returned when StoreUserMetadata is given
	// more bytes than the format reserves for it.
	ErrUserMetadataTooLarge = errors.New("dynamicstore: user metadata exceeds MaxUserMetadataSize")

	// ErrNotFormatted is returned by Open when a zero-length file is
	// opened with WithoutFormat and no prior Format call has run.
	ErrNotFormatted = errors.New("dynamicstore: file has not been formatted")

	// ErrInconsistent is returned by Open when a pre-existing file fails
	// LoadAndCheck. LoadAndCheck itself reports a failed check as a false
	// return, matching its documented signature.
	ErrInconsistent = errors.New("dynamicstore: consistency check failed")
)
