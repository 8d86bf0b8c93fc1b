package protocol

import "errors"

var (
	// ErrInvalidJSON indicates a data-channel payload that is not valid JSON
	ErrInvalidJSON = errors.New("payload is not valid JSON")

	// ErrUnknownMessageType indicates an unrecognized server message type
	ErrUnknownMessageType = errors.New("unknown server message type")

	// ErrUnknownSystemAction indicates an unrecognized system action
	ErrUnknownSystemAction = errors.New("unknown system action")

	// ErrEmptyAction indicates an empty system action string
	ErrEmptyAction = errors.New("empty system action")
)
