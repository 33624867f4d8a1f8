package mcpbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrParse is returned for input lines that are not valid JSON.
var ErrParse = errors.New("parse error")

// ErrInvalidRequest is returned for valid JSON that is not an object.
var ErrInvalidRequest = errors.New("invalid request")

// MethodNotFoundError is returned for methods missing from the dispatch table.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return "method not found: " + e.Method
}

// BackendError carries an error object produced by the backend. It is
// passed to the host unchanged.
type BackendError struct {
	Object json.RawMessage
}

func (e *BackendError) Error() string {
	return "backend error: " + string(e.Object)
}

// HTTPError is a non-2xx backend response without a usable error object.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

// maxErrorBody bounds how much of a non-JSON error body ends up in a message.
const maxErrorBody = 200

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return status
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return status + " - " + body
}

// TransportError is a failure to complete the HTTP exchange: connection
// refused, DNS, TLS, timeout or a truncated body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// errorObject maps any failure to the JSON-RPC error object sent to the host.
func errorObject(err error) json.RawMessage {
	var (
		notFound  *MethodNotFoundError
		backend   *BackendError
		httpErr   *HTTPError
		transport *TransportError
	)
	switch {
	case errors.Is(err, ErrParse):
		return mustMarshal(rpcError{Code: codeParseError, Message: "Parse error"})
	case errors.Is(err, ErrInvalidRequest):
		return mustMarshal(rpcError{Code: codeInvalidRequest, Message: "Invalid Request"})
	case errors.As(err, &notFound):
		return mustMarshal(rpcError{Code: codeMethodNotFound, Message: "Method not found: " + notFound.Method})
	case errors.As(err, &backend):
		return backend.Object
	case errors.As(err, &httpErr):
		return mustMarshal(rpcError{Code: codeInternalError, Message: "HTTP error: " + httpErr.Error()})
	case errors.As(err, &transport):
		return mustMarshal(rpcError{Code: codeInternalError, Message: "Network error: " + transport.Error()})
	default:
		return mustMarshal(rpcError{Code: codeInternalError, Message: fmt.Sprintf("Internal error: %v", err)})
	}
}

// errorCode extracts the numeric code of an error object for metrics.
// Backend objects without one yield "".
func errorCode(obj json.RawMessage) string {
	var e struct {
		Code *json.Number `json:"code"`
	}
	if err := json.Unmarshal(obj, &e); err != nil || e.Code == nil {
		return ""
	}
	return e.Code.String()
}
