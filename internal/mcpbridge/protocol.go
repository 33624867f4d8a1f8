package mcpbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"
)

// Standard JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

var nullID = json.RawMessage(`null`)

// request is an inbound JSON-RPC envelope. Every key of the original object
// is kept in fields so the forwarded body carries whatever the host sent.
type request struct {
	fields map[string]json.RawMessage
	id     json.RawMessage // nil until assigned when the host omitted it
	method string
}

// parseRequest decodes one non-blank input line.
func parseRequest(line []byte) (*request, error) {
	if !json.Valid(line) {
		return nil, ErrParse
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return nil, ErrInvalidRequest
	}

	req := &request{fields: fields, id: fields["id"]}
	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &req.method); err != nil {
			req.method = string(raw)
		}
	}
	return req, nil
}

// assignID sets a synthetic numeric id on a request the host sent without one.
func (r *request) assignID(n int64) {
	r.id = json.RawMessage(strconv.FormatInt(n, 10))
	r.fields["id"] = r.id
}

// params returns the compacted params value, or "" when absent.
func (r *request) params() string {
	raw, ok := r.fields["params"]
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// response is an outbound JSON-RPC 2.0 message. Exactly one of Result and
// Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func resultResponse(id, result json.RawMessage) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, err error) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: errorObject(err)}
}

// encode renders resp as a single newline-terminated line.
func encode(resp *response) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return buf.Bytes(), nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
