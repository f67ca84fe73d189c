package heap

import "errors"

var (
	// ErrBadSize reports a non-positive size or element count.
	ErrBadSize = errors.New("heap: block size must be positive")

	// ErrOverflow reports that count * elemSize does not fit an int.
	ErrOverflow = errors.New("heap: element count multiplication overflows")

	// ErrNoSpace reports that the segment could not be extended to
	// satisfy an allocation.
	ErrNoSpace = errors.New("heap: cannot extend segment")

	// ErrBadRef reports a reference that does not address a live block:
	// out of bounds, missing signature, or a block this heap never made.
	ErrBadRef = errors.New("heap: invalid block reference")

	// ErrDoubleFree reports a release of a block that is already free.
	ErrDoubleFree = errors.New("heap: block already free")

	// ErrCorrupt reports a registry walk that no longer terminates
	// inside the segment.
	ErrCorrupt = errors.New("heap: block registry corrupted")
)
