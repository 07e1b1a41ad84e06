package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every client-correctable input error.
	ErrValidation = errors.New("validation error")

	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrSelfTransfer     = fmt.Errorf("%w: cannot transfer to yourself", ErrValidation)
	ErrInvalidKind      = fmt.Errorf("%w: kind must be send or request", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: description is required", ErrValidation)
	ErrInvalidUsername  = fmt.Errorf("%w: invalid username", ErrValidation)

	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("transaction not found")
	ErrForbidden    = errors.New("acting user is not allowed to perform this operation")

	// ErrAlreadyProcessed means the status compare-and-swap lost: the caller holds a stale view.
	ErrAlreadyProcessed  = errors.New("transaction has already been processed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrUsernameTaken   = errors.New("username already taken")

	// ErrStorageUnavailable wraps driver failures; nothing partial was committed.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
