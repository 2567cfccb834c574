package errors

import "errors"

var (
	ErrInvalidDoctor = errors.New("invalid doctor")

	ErrInvalidSlot = errors.New("invalid slot")

	// ErrUnknownCommand marks a slot command whose event type this service
	// does not handle. Such messages go to the dead letter topic.
	ErrUnknownCommand = errors.New("unknown slot command")
)
