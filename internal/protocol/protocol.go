// Package protocol defines the JSON wire types exchanged with the plugin daemon.
package protocol

import (
	"bytes"
	"encoding/json"
)

// Response codes carried in the envelope.
const (
	CodeOK         = 0
	CodeInnerError = -500
)

// Envelope is the {code, message, data} wrapper of every daemon response.
// Code and Message are pointers so a missing field can be told apart from a
// zero value; Data stays raw until the caller decodes it into a payload type.
type Envelope struct {
	Code    *int            `json:"code"`
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Valid reports whether the required envelope fields are present.
func (e *Envelope) Valid() bool {
	return e.Code != nil && e.Message != nil
}

// HasData reports whether data is present and not null.
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ErrorBody is the structured error the daemon encodes as JSON inside the
// envelope message when code is non-zero.
type ErrorBody struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// ParseErrorBody parses message as an ErrorBody. Both fields must be present
// strings; otherwise ok is false and the message should be treated as text.
func ParseErrorBody(message string) (body ErrorBody, ok bool) {
	var raw struct {
		ErrorType *string `json:"error_type"`
		Message   *string `json:"message"`
	}
	if err := json.Unmarshal([]byte(message), &raw); err != nil {
		return ErrorBody{}, false
	}
	if raw.ErrorType == nil || raw.Message == nil {
		return ErrorBody{}, false
	}
	return ErrorBody{ErrorType: *raw.ErrorType, Message: *raw.Message}, true
}
