package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/d2verb/difyctl/internal/protocol"
)

// transformer reshapes the raw parsed JSON of a response before it is
// decoded into its typed form.
type transformer func(doc any) (any, error)

func targetName[T any]() string {
	return fmt.Sprintf("%T", *new(T))
}

// unwrap checks the HTTP status, decodes the envelope and returns its data
// as T. A non-zero code always produces an error.
func unwrap[T any](resp *rawResponse, transform transformer) (T, error) {
	var zero T
	target := targetName[T]()

	if resp.statusCode < 200 || resp.statusCode > 299 {
		return zero, &StatusError{
			Method:     resp.method,
			Path:       resp.path,
			StatusCode: resp.statusCode,
			Body:       truncate(string(resp.body), maxErrorBody),
		}
	}

	body := resp.body
	if transform != nil {
		doc, err := decodeDocument(body)
		if err != nil {
			return zero, &ProtocolError{Path: resp.path, Target: target, Err: err}
		}
		reshaped, err := transform(doc)
		if err != nil {
			return zero, &ProtocolError{Path: resp.path, Target: target, Err: err}
		}
		if body, err = json.Marshal(reshaped); err != nil {
			return zero, &ProtocolError{Path: resp.path, Target: target, Err: err}
		}
	}

	var env protocol.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, &ProtocolError{Path: resp.path, Target: target, Err: err}
	}
	if !env.Valid() {
		return zero, &ProtocolError{Path: resp.path, Target: target, Message: fmt.Sprintf("malformed envelope for %s", target)}
	}

	if *env.Code != protocol.CodeOK {
		return zero, envelopeError(*env.Code, *env.Message)
	}
	if !env.HasData() {
		return zero, &ProtocolError{Path: resp.path, Target: target, Message: "got empty data from plugin daemon"}
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zero, &ProtocolError{Path: resp.path, Target: target, Err: err}
	}
	return data, nil
}

// decodeDocument parses body generically, keeping numbers as json.Number
// so large integers survive re-encoding.
func decodeDocument(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
	}
	return doc, nil
}

// envelopeError turns a failed envelope into an error: the message is first
// read as a structured daemon error, then kept as plain text.
func envelopeError(code int, message string) error {
	if body, ok := protocol.ParseErrorBody(message); ok {
		return dispatchError(body.ErrorType, body.Message)
	}
	return &DaemonError{Kind: KindUnknown, Code: code, Message: message}
}

// decodeStreamLine decodes one streamed line as an envelope of T.
func decodeStreamLine[T any](line, path string) (T, error) {
	var zero T
	target := targetName[T]()

	var env protocol.Envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil || !env.Valid() {
		return zero, &ProtocolError{Path: path, Target: target, Message: lineFailure(line)}
	}

	if code := *env.Code; code != protocol.CodeOK {
		if body, ok := protocol.ParseErrorBody(*env.Message); ok {
			return zero, dispatchError(body.ErrorType, body.Message)
		}
		if code == protocol.CodeInnerError {
			return zero, &DaemonError{Kind: KindInner, Code: code, Message: *env.Message}
		}
		return zero, &DaemonError{Kind: KindUnknown, Code: code, Message: *env.Message}
	}
	if !env.HasData() {
		return zero, &ProtocolError{Path: path, Target: target, Message: "got empty data from plugin daemon"}
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zero, &ProtocolError{Path: path, Target: target, Err: err}
	}
	return data, nil
}

// lineFailure describes a line that is not an envelope: the value of its
// "error" field when it is a JSON object carrying one, else the line itself.
func lineFailure(line string) string {
	var doc map[string]any
	if err := json.Unmarshal([]byte(line), &doc); err == nil {
		if v, ok := doc["error"]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			b, _ := json.Marshal(v)
			return string(b)
		}
	}
	return line
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
