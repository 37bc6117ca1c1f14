package hedge

import "errors"

// Operation errors. As in the vault, every precondition is checked before
// the first write, so errors imply no mutation.
var (
	ErrPaused               = errors.New("hedge: paused")
	ErrUnauthorized         = errors.New("hedge: missing required capability")
	ErrNotFound             = errors.New("hedge: object not found")
	ErrAlreadyExists        = errors.New("hedge: commitment hash already stored")
	ErrNullifierAlreadyUsed = errors.New("hedge: nullifier already used")
	ErrInvalidProof         = errors.New("hedge: proof rejected")
	ErrAlreadySettled       = errors.New("hedge: commitment already settled")
	ErrBatchNotReady        = errors.New("hedge: batch interval not elapsed")
	ErrAlreadyAggregated    = errors.New("hedge: batch already aggregated")
)
