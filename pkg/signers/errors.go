package signers

import "errors"

var (
	// ErrLogQuery wraps any failure of the underlying log source, including
	// timeouts and cancellation.
	ErrLogQuery = errors.New("log query failed")

	// ErrDecode marks a topic that cannot be read as an address.
	ErrDecode = errors.New("undecodable signer topic")
)
