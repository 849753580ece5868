package protocol

import "encoding/json"

// EvaluateArgs parameterises an "evaluate" request.
type EvaluateArgs struct {
	FrameID    int    `json:"frameId"`
	Context    string `json:"context"`
	Expression string `json:"expression"`
}

// Evaluation contexts accepted by the debuggee.
const (
	ContextWatch     = "watch"
	ContextRepl      = "repl"
	ContextHover     = "hover"
	ContextClipboard = "clipboard"
	ContextVariables = "variables"
)

// ScopesArgs parameterises a "scopes" request.
type ScopesArgs struct {
	FrameID int `json:"frameId"`
}

// VariablesArgs parameterises a "variables" request. Start and Count are
// pointers so that an explicit zero survives marshalling when a filter is
// applied.
type VariablesArgs struct {
	VariablesReference int    `json:"variablesReference"`
	Filter             string `json:"filter,omitempty"`
	Start              *int   `json:"start,omitempty"`
	Count              *int   `json:"count,omitempty"`
}

// FilterIndexed selects the indexed (array element) children of a reference.
const FilterIndexed = "indexed"

// SetBreakpointsArgs parameterises the request-based breakpoint delivery of
// protocol version 6.
type SetBreakpointsArgs struct {
	Path        string       `json:"path"`
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// SetBreakpointsBody is the verification result of a "setBreakpoints"
// request.
type SetBreakpointsBody struct {
	Breakpoints []BreakpointVerification `json:"breakpoints"`
}

// BreakpointVerification reports whether the debuggee bound one breakpoint.
type BreakpointVerification struct {
	Verified bool   `json:"verified"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message,omitempty"`
}

// VariableInfo is the wire form of one entry in the debuggee's variable
// table, shared by "variables" children and "evaluate" results.
type VariableInfo struct {
	Name             string `json:"name"`
	Value            string `json:"value"`
	Type             string `json:"type"`
	Ref              int    `json:"variablesReference"`
	IndexedVariables *int   `json:"indexedVariables,omitempty"`
}

// EvaluateBody is the body of an "evaluate" response.
type EvaluateBody struct {
	Result           string `json:"result"`
	Type             string `json:"type"`
	Ref              int    `json:"variablesReference"`
	IndexedVariables *int   `json:"indexedVariables,omitempty"`
}

// StackFrameInfo is the wire form of one stack frame.
type StackFrameInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	Line     int    `json:"lineNumber"`
}

// ScopeInfo is the wire form of one scope.
type ScopeInfo struct {
	Name      string `json:"name"`
	Ref       int    `json:"variablesReference"`
	Expensive bool   `json:"expensive"`
}

// StoppedEventBody is the payload of a StoppedEvent.
type StoppedEventBody struct {
	Type   string `json:"type"`
	Thread int    `json:"thread"`
	Reason string `json:"reason"`
}

// ThreadEventBody is the payload of a ThreadEvent.
type ThreadEventBody struct {
	Type   string `json:"type"`
	Thread int    `json:"thread"`
	Reason string `json:"reason"`
}

// PrintEventBody is the payload of a PrintEvent.
type PrintEventBody struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	LogLevel int    `json:"logLevel"`
}

// ProtocolEventBody is the payload of the debuggee's protocol handshake.
type ProtocolEventBody struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// ProfilerCaptureBody is the payload of a ProfilerCapture event. The
// capture itself is opaque to the client.
type ProfilerCaptureBody struct {
	Type    string          `json:"type"`
	Capture json.RawMessage `json:"capture,omitempty"`
}
