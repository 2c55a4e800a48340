package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage indicates a received frame does not follow the wire format.
var ErrMalformedMessage = errors.New("malformed message")

// Message is a single progress update received from the message source.
// Messages are immutable once received; the log keeps them in arrival order.
type Message struct {
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// wireMessage mirrors the JSON frame with pointer fields so missing keys
// can be told apart from empty strings.
type wireMessage struct {
	Stage     *string `json:"stage"`
	Message   *string `json:"message"`
	Timestamp *string `json:"timestamp"`
}

// ParseMessage decodes one wire frame.
// The frame must be a JSON object with string "stage" and "message" fields.
// "timestamp" is optional and may be null. Unknown fields are ignored.
func ParseMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if w.Stage == nil {
		return Message{}, fmt.Errorf("%w: missing stage", ErrMalformedMessage)
	}
	if w.Message == nil {
		return Message{}, fmt.Errorf("%w: missing message", ErrMalformedMessage)
	}

	msg := Message{
		Stage:   Stage(*w.Stage),
		Message: *w.Message,
	}
	if w.Timestamp != nil {
		msg.Timestamp = *w.Timestamp
	}
	return msg, nil
}
