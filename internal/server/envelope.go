package server

import (
	"github.com/douyin-rboot/droidrun-portal/internal/command"
)

// Envelope statuses. The transport status line is 200 for every routed
// request; this field is the application-level outcome.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform wrapper around every response body. Data holds a
// true JSON value: an array for the tree routes, an object for state, a
// string for ping, screenshots and command results. Error envelopes carry a
// human-readable message and no data.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success wraps a payload in a success envelope.
func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

// Error wraps a message in an error envelope.
func Error(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// CommandEnvelope maps a dispatcher result string onto the envelope. The
// full prefixed string travels as the payload either way, so clients see the
// same text no matter which surface they called through.
func CommandEnvelope(result string) Envelope {
	if command.IsError(result) {
		return Error(result)
	}
	return Success(result)
}
