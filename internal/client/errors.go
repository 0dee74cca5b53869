package client

import (
	"errors"
	"fmt"

	"github.com/d2verb/difyctl/internal/protocol"
)

// Kind classifies an error reported by, or about, the plugin daemon.
type Kind string

const (
	KindUnreachable       Kind = "DaemonUnreachable"
	KindInner             Kind = "PluginDaemonInnerError"
	KindToolInvoke        Kind = "PluginInvokeError"
	KindInternal          Kind = "PluginDaemonInternalServerError"
	KindBadRequest        Kind = "PluginDaemonBadRequestError"
	KindNotFound          Kind = "PluginDaemonNotFoundError"
	KindInvalidIdentifier Kind = "PluginUniqueIdentifierError"
	KindPluginNotFound    Kind = "PluginNotFoundError"
	KindUnauthorized      Kind = "PluginDaemonUnauthorizedError"
	KindPermissionDenied  Kind = "PluginPermissionDeniedError"
	KindUnknown           Kind = "UnknownDaemonError"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrUnreachable       = &DaemonError{Kind: KindUnreachable}
	ErrInner             = &DaemonError{Kind: KindInner}
	ErrToolInvoke        = &DaemonError{Kind: KindToolInvoke}
	ErrInternal          = &DaemonError{Kind: KindInternal}
	ErrBadRequest        = &DaemonError{Kind: KindBadRequest}
	ErrNotFound          = &DaemonError{Kind: KindNotFound}
	ErrInvalidIdentifier = &DaemonError{Kind: KindInvalidIdentifier}
	ErrPluginNotFound    = &DaemonError{Kind: KindPluginNotFound}
	ErrUnauthorized      = &DaemonError{Kind: KindUnauthorized}
	ErrPermissionDenied  = &DaemonError{Kind: KindPermissionDenied}
	ErrUnknown           = &DaemonError{Kind: KindUnknown}
)

// DaemonError is an error reported by the daemon, or the failure to reach it.
type DaemonError struct {
	Kind Kind
	// Code is set for KindUnreachable and KindInner (-500) and for
	// unstructured non-zero envelope codes.
	Code int
	// ErrorType is the daemon's error_type, set for KindUnknown when the
	// daemon sent one this client does not recognize.
	ErrorType string
	Message   string
	Err       error
}

func (e *DaemonError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		if e.Err != nil {
			return fmt.Sprintf("plugin daemon unreachable: %v", e.Err)
		}
		return "plugin daemon unreachable"
	case KindInner:
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	case KindUnknown:
		if e.ErrorType != "" {
			return fmt.Sprintf("got unknown error from plugin daemon: %s, message: %s", e.ErrorType, e.Message)
		}
		return fmt.Sprintf("plugin daemon: %s, code: %d", e.Message, e.Code)
	default:
		return e.Message
	}
}

func (e *DaemonError) Unwrap() error {
	return e.Err
}

// Is matches another *DaemonError of the same Kind.
func (e *DaemonError) Is(target error) bool {
	t, ok := target.(*DaemonError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of a DaemonError in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *DaemonError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// dispatchError translates a daemon error_type into a local error. It is
// total: unrecognized types become KindUnknown.
func dispatchError(errorType, message string) error {
	switch Kind(errorType) {
	case KindInner:
		return &DaemonError{Kind: KindInner, Code: protocol.CodeInnerError, Message: message}
	case KindToolInvoke, KindInternal, KindBadRequest, KindNotFound,
		KindInvalidIdentifier, KindPluginNotFound, KindUnauthorized, KindPermissionDenied:
		return &DaemonError{Kind: Kind(errorType), Message: message}
	default:
		return &DaemonError{Kind: KindUnknown, ErrorType: errorType, Message: message}
	}
}

// ValidationError indicates bad input detected locally, before or instead of
// a network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err indicates invalid local input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProtocolError indicates a response that could not be parsed into the
// expected shape.
type ProtocolError struct {
	Path    string
	Target  string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("failed to parse response from plugin daemon to %s", e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s, url: %s", msg, e.Path)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocol reports whether err indicates an unparsable daemon response.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// StatusError indicates a non-2xx HTTP status from the daemon.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("plugin daemon %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("plugin daemon %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
