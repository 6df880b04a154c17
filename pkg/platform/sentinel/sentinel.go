package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can decide how to degrade or which domain error to raise.
//
//   - ErrNotFound: key or artifact does not exist
//   - ErrConflict: a conflicting record already exists (e.g. an active experiment)
//   - ErrLockHeld: an advisory lock is owned by another holder
//   - ErrChecksumMismatch: a stored blob does not match its recorded checksum
//   - ErrInvalidState: record is in the wrong state for the requested operation
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrLockHeld         = errors.New("lock held")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnavailable      = errors.New("unavailable")
)
