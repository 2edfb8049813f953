package ledger

import (
	"errors"
	"fmt"
)

// Error kinds returned by the ledger. Callers match them with errors.Is;
// the returned errors wrap them with the operation context.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrAlreadyVerified    = errors.New("already verified")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")

	ErrNotAdmin      = fmt.Errorf("%w: caller is not the administrator", ErrUnauthorized)
	ErrNotRegistered = fmt.Errorf("%w: identity not registered", ErrNotFound)
	ErrInvalidRole   = fmt.Errorf("%w: role", ErrInvalidInput)
)
