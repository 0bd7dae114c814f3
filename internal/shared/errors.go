package shared

import "errors"

var (
	// ErrRecordNotFound indicates a device record has never been written.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoDevice occurs when a request reaches a handler without a device.
	ErrNoDevice = errors.New("device missing")
)
