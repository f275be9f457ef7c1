package broadcast

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("broadcast: nil parameter")

	// ErrConnectionFailed indicates the node could not be reached.
	ErrConnectionFailed = errors.New("broadcast: connection failed")

	// ErrInvalidResponse indicates the node's response could not be decoded.
	ErrInvalidResponse = errors.New("broadcast: invalid response")
)
