package walletext

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("walletext: nil parameter")

	// ErrDuplicateExtension indicates an extension with the same ID is already registered.
	ErrDuplicateExtension = errors.New("walletext: extension already registered")

	// ErrMandatoryExtension indicates a mandatory extension has no persisted payload.
	ErrMandatoryExtension = errors.New("walletext: missing payload for mandatory extension")

	// ErrCorruptSeal indicates a sealed payload is too short or structurally invalid.
	ErrCorruptSeal = errors.New("walletext: corrupt sealed payload")

	// ErrWrongPassphrase indicates a sealed payload failed to authenticate,
	// most likely because the passphrase is wrong.
	ErrWrongPassphrase = errors.New("walletext: wrong passphrase")
)
