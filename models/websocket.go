package models

import (
	"encoding/json"
	"fmt"
)

// Message is the frame exchanged over the realtime channel in both directions.
// Args are positional, the way socket.io events carry them.
type Message struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// NewMessage builds an outbound message, marshalling each argument.
func NewMessage(event string, args ...interface{}) (Message, error) {
	msg := Message{Event: event, Args: make([]json.RawMessage, 0, len(args))}
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return Message{}, fmt.Errorf("marshal arg %d of %s: %w", i, event, err)
		}
		msg.Args = append(msg.Args, raw)
	}
	return msg, nil
}

// Arg decodes the i-th argument into v. A missing argument is an error.
func (m Message) Arg(i int, v interface{}) error {
	if i >= len(m.Args) {
		return fmt.Errorf("%s: missing argument %d", m.Event, i)
	}
	if err := json.Unmarshal(m.Args[i], v); err != nil {
		return fmt.Errorf("%s: argument %d: %w", m.Event, i, err)
	}
	return nil
}

// EventError carries an ErrorPayload back to the connection that caused it.
const EventError = "error"

// Error codes sent in ErrorPayload.Code.
const (
	ErrCodeRoomNotFound  = "roomNotFound"
	ErrCodeUserNotFound  = "userNotFound"
	ErrCodeNotAuthorized = "notAuthorized"
	ErrCodeAlreadyPlayed = "alreadyPlayed"
	ErrCodeInvalidMove   = "invalidMove"
	ErrCodeConfiguration = "configurationError"
	ErrCodeRoomStarted   = "roomStarted"
	ErrCodeNotStarted    = "gameNotStarted"
	ErrCodeBadRequest    = "badRequest"
	ErrCodeUnknownEvent  = "unknownEvent"
	ErrCodeInternal      = "internal"
)

// ErrorPayload is the single argument of an "error" event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds the "error" event for code.
func NewErrorMessage(code, message string) Message {
	raw, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	return Message{Event: EventError, Args: []json.RawMessage{raw}}
}
