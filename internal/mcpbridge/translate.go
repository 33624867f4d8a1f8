package mcpbridge

import (
	"encoding/json"
	"fmt"
)

// translate turns a backend reply into a JSON-RPC result. Failures come back
// as errors for errorObject to map.
func translate(reply *Reply) (json.RawMessage, error) {
	if reply.StatusCode < 200 || reply.StatusCode >= 300 {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(reply.Body, &body); err == nil {
			if obj, ok := body["error"]; ok {
				return nil, &BackendError{Object: obj}
			}
		}
		return nil, &HTTPError{StatusCode: reply.StatusCode, Status: reply.Status, Body: reply.Body}
	}

	if !json.Valid(reply.Body) {
		return nil, fmt.Errorf("backend returned invalid JSON (%d bytes)", len(reply.Body))
	}
	return sniff(reply.Body)
}

// sniff classifies a 2xx body by its top-level keys. The backend does not
// have to speak JSON-RPC, so the shape decides, in this order:
//
//	tools   -> {"tools": <value>}
//	content -> the whole body
//	error   -> the value, as the response error
//	other   -> the whole body
//
// A body with both tools and error is a list result.
func sniff(body json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return body, nil
	}
	if tools, ok := obj["tools"]; ok {
		return mustMarshal(struct {
			Tools json.RawMessage `json:"tools"`
		}{tools}), nil
	}
	if _, ok := obj["content"]; ok {
		return body, nil
	}
	if e, ok := obj["error"]; ok {
		return nil, &BackendError{Object: e}
	}
	return body, nil
}
