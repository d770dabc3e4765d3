package table

import "errors"

var (
	// ErrCapacityExceeded is returned by Insert when growth is disabled and
	// admitting one more entry would push occupied+tombstone slots past the
	// load-factor bound. Recoverable: remove entries (or Clear) and retry.
	ErrCapacityExceeded = errors.New("table: capacity exceeded")

	// ErrStaleHandle is returned when a Handle's generation no longer matches
	// the slot it refers to: the slot was reused or the table was resized.
	// This is a logic fault in calling code, not a condition to retry.
	ErrStaleHandle = errors.New("table: stale handle")

	// ErrVacantSlot is returned when a Handle's generation matches but the
	// slot holds no entry. Same class of fault as ErrStaleHandle.
	ErrVacantSlot = errors.New("table: vacant slot")
)
