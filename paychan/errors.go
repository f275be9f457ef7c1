package paychan

import "errors"

var (
	// ErrCorruptPayload indicates a persisted channel payload could not be decoded.
	ErrCorruptPayload = errors.New("paychan: corrupt channel payload")

	// ErrWalletMismatch indicates an attempt to deserialize into an extension
	// that is already bound to a different wallet.
	ErrWalletMismatch = errors.New("paychan: extension already bound to a different wallet")
)
