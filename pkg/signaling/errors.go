package signaling

import "errors"

var (
	// ErrClientClosed indicates the client has been closed
	ErrClientClosed = errors.New("signaling client is closed")

	// ErrServerError indicates an ERROR status message from the server
	ErrServerError = errors.New("signalling server error")

	// ErrInvalidMessage indicates a message that is neither a known status
	// text nor a valid negotiation envelope
	ErrInvalidMessage = errors.New("invalid signalling message")

	// ErrRetriesExceeded indicates the reconnect retry cap is exhausted
	ErrRetriesExceeded = errors.New("signalling retries exceeded")
)
