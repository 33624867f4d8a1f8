package mcpbridge

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantResult string
		wantError  string
	}{
		{"tools", `{"tools":[{"name":"a"}],"nextCursor":"x"}`, `{"tools":[{"name":"a"}]}`, ""},
		{"content", `{"content":[],"isError":true}`, `{"content":[],"isError":true}`, ""},
		{"error", `{"error":{"code":1,"message":"m"}}`, "", `{"code":1,"message":"m"}`},
		{"tools before content", `{"content":[],"tools":[]}`, `{"tools":[]}`, ""},
		{"content before error", `{"error":"e","content":[]}`, `{"error":"e","content":[]}`, ""},
		{"fallback object", `{"ok":true}`, `{"ok":true}`, ""},
		{"fallback array", `[1,2]`, `[1,2]`, ""},
		{"fallback null", `null`, `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sniff(json.RawMessage(tt.body))
			if tt.wantError != "" {
				var be *BackendError
				require.True(t, errors.As(err, &be), "got %v", err)
				assert.JSONEq(t, tt.wantError, string(be.Object))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantResult, string(result))
		})
	}
}

func TestTranslate_status(t *testing.T) {
	_, err := translate(&Reply{StatusCode: 503, Status: "503 Service Unavailable", Body: []byte(`[]`)})
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 503, he.StatusCode)

	_, err = translate(&Reply{StatusCode: 403, Body: []byte(`{"error":null}`)})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "null", string(be.Object))

	result, err := translate(&Reply{StatusCode: 201, Body: []byte(" {\"content\":[]}\n")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[]}`, string(result))
}

func TestErrorObject(t *testing.T) {
	long := strings.Repeat("x", 500)
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", ErrParse, `{"code":-32700,"message":"Parse error"}`},
		{"invalid request", ErrInvalidRequest, `{"code":-32600,"message":"Invalid Request"}`},
		{"method", &MethodNotFoundError{Method: "a/b"}, `{"code":-32601,"message":"Method not found: a/b"}`},
		{"backend", &BackendError{Object: json.RawMessage(`{"code":7}`)}, `{"code":7}`},
		{"http status only", &HTTPError{StatusCode: 418}, `{"code":-32603,"message":"HTTP error: 418 I'm a teapot"}`},
		{"http truncated", &HTTPError{StatusCode: 500, Status: "500 Internal Server Error", Body: []byte(long)},
			`{"code":-32603,"message":"HTTP error: 500 Internal Server Error - ` + long[:200] + `"}`},
		{"network", &TransportError{Err: errors.New("dial tcp: refused")}, `{"code":-32603,"message":"Network error: dial tcp: refused"}`},
		{"other", errors.New("kaput"), `{"code":-32603,"message":"Internal error: kaput"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(errorObject(tt.err)))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "-32601", errorCode(json.RawMessage(`{"code":-32601,"message":"x"}`)))
	assert.Equal(t, "", errorCode(json.RawMessage(`"plain string"`)))
	assert.Equal(t, "", errorCode(json.RawMessage(`{"message":"no code"}`)))
}

func TestParseRequest(t *testing.T) {
	req, err := parseRequest([]byte(`{"jsonrpc":"2.0","method":"tools/list","params":{ "cursor" : "c" }}`))
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.method)
	assert.Nil(t, req.id)
	assert.Equal(t, `{"cursor":"c"}`, req.params())

	req.assignID(42)
	assert.Equal(t, "42", string(req.fields["id"]))

	req, err = parseRequest([]byte(`{"jsonrpc":"2.0","id":"x","method":5}`))
	require.NoError(t, err)
	assert.Equal(t, "5", req.method)
	assert.Equal(t, `"x"`, string(req.id))
	assert.Equal(t, "", req.params())

	_, err = parseRequest([]byte(`{"method":`))
	assert.ErrorIs(t, err, ErrParse)
}
