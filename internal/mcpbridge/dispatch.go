package mcpbridge

import "encoding/json"

// MCP method names handled by the bridge.
const (
	methodInitialize    = "initialize"
	methodInitialized   = "notifications/initialized"
	methodCancelled     = "notifications/cancelled"
	methodResourcesList = "resources/list"
	methodPromptsList   = "prompts/list"
	methodToolsList     = "tools/list"
	methodToolsCall     = "tools/call"
)

type outcome int

const (
	outcomeMethodNotFound outcome = iota
	outcomeLocal
	outcomeSuppressed
	outcomeForward
)

// route is one dispatch table entry. result is only set for outcomeLocal.
type route struct {
	outcome outcome
	result  json.RawMessage
}

// ServerInfo is the identity reported in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// newRoutes builds the dispatch table. Local results are encoded once so
// repeated requests get byte-identical answers.
func newRoutes(info ServerInfo) map[string]route {
	return map[string]route{
		methodInitialize: {outcome: outcomeLocal, result: mustMarshal(initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      info,
		})},
		methodInitialized:   {outcome: outcomeSuppressed},
		methodCancelled:     {outcome: outcomeSuppressed},
		methodResourcesList: {outcome: outcomeLocal, result: json.RawMessage(`{"resources":[]}`)},
		methodPromptsList:   {outcome: outcomeLocal, result: json.RawMessage(`{"prompts":[]}`)},
		methodToolsList:     {outcome: outcomeForward},
		methodToolsCall:     {outcome: outcomeForward},
	}
}
