package vault

import "errors"

// Operation errors. Every operation validates all of its preconditions
// before the first state write, so a returned error means no mutation took
// place.
var (
	ErrPaused              = errors.New("vault: paused")
	ErrUnauthorized        = errors.New("vault: missing required capability")
	ErrInvalidAddress      = errors.New("vault: invalid address")
	ErrZeroAmount          = errors.New("vault: amount must be greater than zero")
	ErrAlreadyExists       = errors.New("vault: derived address already bound")
	ErrNotFound            = errors.New("vault: object not found")
	ErrNotOwner            = errors.New("vault: caller is not the owner")
	ErrProxyInactive       = errors.New("vault: proxy binding is inactive")
	ErrInvalidProof        = errors.New("vault: proof rejected")
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	ErrWithdrawalNotReady  = errors.New("vault: withdrawal still time-locked")
	ErrAlreadyExecuted     = errors.New("vault: withdrawal already executed")
	ErrAlreadyCancelled    = errors.New("vault: withdrawal already cancelled")
)
