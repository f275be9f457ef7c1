// Package walletext provides the wallet extension machinery: named units of
// state that a wallet persists alongside its core data. An extension declares
// a stable identifier, reports whether the wallet may load without it, and
// serializes its state to an opaque payload. The Wallet host stores payloads
// in a bbolt database, optionally sealed with a passphrase.
package walletext

// Extension is a named unit of state persisted alongside a wallet's core data.
type Extension interface {
	// ID returns a stable identifier, unique within the wallet's extension namespace.
	ID() string

	// Mandatory reports whether the wallet must refuse to load when this
	// extension's payload is missing. Non-mandatory extensions simply start empty.
	Mandatory() bool

	// Serialize returns the extension's current state as an opaque payload.
	Serialize() ([]byte, error)

	// Deserialize restores the extension's state from a persisted payload.
	// The host is the wallet performing the load; an extension already bound
	// to a different host must reject the call.
	Deserialize(host Host, data []byte) error
}

// Host receives change notifications from extensions. An extension calls
// NotifyExtensionChanged after every mutation so the host can persist the
// updated payload.
type Host interface {
	NotifyExtensionChanged(ext Extension)
}
