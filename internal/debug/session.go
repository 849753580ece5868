package debug

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	errs "github.com/ctagard/mcdbg/internal/errors"
	"github.com/ctagard/mcdbg/internal/protocol"
	"github.com/ctagard/mcdbg/pkg/types"
)

// Session provides the high-level debugger operations on top of a
// Connection. A Session owns its Connection one-to-one and ends when the
// Connection ends.
type Session struct {
	conn *Connection
	log  *logrus.Entry

	hmu             sync.Mutex
	stoppedHandlers []func(types.StoppedEvent)
	contextHandlers []func(types.ContextEvent)
	endHandlers     []func()
	endOnce         sync.Once
}

// NewSession wraps a Connection and bridges its wire events onto the
// session surface.
func NewSession(conn *Connection) *Session {
	s := &Session{
		conn: conn,
		log:  logrus.WithField("component", "session"),
	}

	conn.On(protocol.EventStopped, func(event json.RawMessage) {
		var body protocol.StoppedEventBody
		if err := json.Unmarshal(event, &body); err != nil {
			s.log.WithError(err).Warn("discarding malformed stopped event")
			return
		}
		ev := types.StoppedEvent{Thread: body.Thread, Reason: types.StopReason(body.Reason)}
		s.hmu.Lock()
		handlers := append([]func(types.StoppedEvent){}, s.stoppedHandlers...)
		s.hmu.Unlock()
		for _, h := range handlers {
			h(ev)
		}
	})

	conn.On(protocol.EventThread, func(event json.RawMessage) {
		var body protocol.ThreadEventBody
		if err := json.Unmarshal(event, &body); err != nil {
			s.log.WithError(err).Warn("discarding malformed thread event")
			return
		}
		ev := types.ContextEvent{Thread: body.Thread, Reason: body.Reason}
		s.hmu.Lock()
		handlers := append([]func(types.ContextEvent){}, s.contextHandlers...)
		s.hmu.Unlock()
		for _, h := range handlers {
			h(ev)
		}
	})

	conn.On(protocol.EventTerminated, func(json.RawMessage) {
		s.emitEnd()
	})
	conn.OnEnd(s.emitEnd)

	return s
}

// Connection exposes the underlying connection, mainly for dialect
// extensions and tests.
func (s *Session) Connection() *Connection {
	return s.conn
}

// Close ends the session by closing its connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// OnStopped registers a handler for debuggee halts.
func (s *Session) OnStopped(handler func(types.StoppedEvent)) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.stoppedHandlers = append(s.stoppedHandlers, handler)
}

// OnContext registers a handler for execution context arrival and exit.
func (s *Session) OnContext(handler func(types.ContextEvent)) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.contextHandlers = append(s.contextHandlers, handler)
}

// OnEnd registers a handler invoked exactly once when the session ends,
// whether by a terminated event or by the connection going away.
func (s *Session) OnEnd(handler func()) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.endHandlers = append(s.endHandlers, handler)
}

func (s *Session) emitEnd() {
	s.endOnce.Do(func() {
		s.hmu.Lock()
		handlers := append([]func(){}, s.endHandlers...)
		s.hmu.Unlock()
		for _, h := range handlers {
			h()
		}
	})
}

// --- Execution control ---

// Continue resumes execution until the next halt.
func (s *Session) Continue() error {
	_, err := s.conn.SendRequest(protocol.CommandContinue, nil)
	return err
}

// Pause asks the debuggee to halt at the next opportunity.
func (s *Session) Pause() error {
	_, err := s.conn.SendRequest(protocol.CommandPause, nil)
	return err
}

// StepNext steps over the current statement.
func (s *Session) StepNext() error {
	_, err := s.conn.SendRequest(protocol.CommandNext, nil)
	return err
}

// StepIn steps into the call on the current statement.
func (s *Session) StepIn() error {
	_, err := s.conn.SendRequest(protocol.CommandStepIn, nil)
	return err
}

// StepOut runs until the current frame returns.
func (s *Session) StepOut() error {
	_, err := s.conn.SendRequest(protocol.CommandStepOut, nil)
	return err
}

// Resume restarts execution without awaiting acknowledgement.
func (s *Session) Resume() error {
	return s.conn.SendEnvelope(&protocol.ResumeEnvelope{
		Header: protocol.NewHeader(protocol.TypeResume),
	})
}

// --- State inspection ---

// Evaluate evaluates an expression in a frame using the watch context.
func (s *Session) Evaluate(frameID int, expression string) (*types.Variable, error) {
	return s.EvaluateIn(frameID, expression, protocol.ContextWatch)
}

// EvaluateIn evaluates an expression in a frame using an explicit context
// discriminator.
func (s *Session) EvaluateIn(frameID int, expression, context string) (*types.Variable, error) {
	body, err := s.conn.SendRequest(protocol.CommandEvaluate, protocol.EvaluateArgs{
		FrameID:    frameID,
		Context:    context,
		Expression: expression,
	})
	if err != nil {
		return nil, err
	}

	var eval protocol.EvaluateBody
	if err := json.Unmarshal(body, &eval); err != nil {
		return nil, errs.DecodeFailed(err)
	}
	return newVariable(protocol.VariableInfo{
		Name:             "result",
		Value:            eval.Result,
		Type:             eval.Type,
		Ref:              eval.Ref,
		IndexedVariables: eval.IndexedVariables,
	}), nil
}

// TraceStack returns the halted call stack, innermost frame first.
func (s *Session) TraceStack() ([]types.StackFrame, error) {
	body, err := s.conn.SendRequest(protocol.CommandStackTrace, nil)
	if err != nil {
		return nil, err
	}

	var infos []protocol.StackFrameInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, errs.DecodeFailed(err)
	}

	frames := make([]types.StackFrame, 0, len(infos))
	for _, info := range infos {
		frames = append(frames, types.StackFrame{
			ID:       info.ID,
			Name:     info.Name,
			FileName: info.FileName,
			Line:     info.Line,
		})
	}
	return frames, nil
}

// TopStack returns the innermost frame of the halted call stack.
func (s *Session) TopStack() (*types.StackFrame, error) {
	frames, err := s.TraceStack()
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errs.NotReady("top stack frame")
	}
	return &frames[0], nil
}

// Scopes returns the variable scopes of one frame.
func (s *Session) Scopes(frameID int) ([]types.Scope, error) {
	body, err := s.conn.SendRequest(protocol.CommandScopes, protocol.ScopesArgs{FrameID: frameID})
	if err != nil {
		return nil, err
	}

	var infos []protocol.ScopeInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, errs.DecodeFailed(err)
	}

	scopes := make([]types.Scope, 0, len(infos))
	for _, info := range infos {
		scopes = append(scopes, types.Scope{
			Name:      info.Name,
			Ref:       info.Ref,
			Expensive: info.Expensive,
		})
	}
	return scopes, nil
}

// VariablesOptions narrows a Variables query. A non-empty Filter selects a
// child class; Start and Count bound the slice when set.
type VariablesOptions struct {
	Filter string
	Start  *int
	Count  *int
}

// Variables expands one variable reference into its children.
func (s *Session) Variables(ref int, opts VariablesOptions) ([]*types.Variable, error) {
	body, err := s.conn.SendRequest(protocol.CommandVariables, protocol.VariablesArgs{
		VariablesReference: ref,
		Filter:             opts.Filter,
		Start:              opts.Start,
		Count:              opts.Count,
	})
	if err != nil {
		return nil, err
	}

	var infos []protocol.VariableInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, errs.DecodeFailed(err)
	}

	vars := make([]*types.Variable, 0, len(infos))
	for _, info := range infos {
		vars = append(vars, newVariable(info))
	}
	return vars, nil
}

// FrameVariables expands every scope of one frame, keyed by scope name.
func (s *Session) FrameVariables(frameID int) (map[string][]*types.Variable, error) {
	scopes, err := s.Scopes(frameID)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]*types.Variable, len(scopes))
	for _, scope := range scopes {
		vars, err := s.Variables(scope.Ref, VariablesOptions{})
		if err != nil {
			return nil, err
		}
		out[scope.Name] = vars
	}
	return out, nil
}

// --- Breakpoints ---

// SetBreakpoints replaces the breakpoint set for one source path with a
// fire-and-forget envelope. A nil list clears the path.
func (s *Session) SetBreakpoints(path string, breakpoints []types.Breakpoint) error {
	return s.conn.SendEnvelope(&protocol.BreakpointsEnvelope{
		Header: protocol.NewHeader(protocol.TypeBreakpoints),
		Breakpoints: protocol.BreakpointsBody{
			Path:        path,
			Breakpoints: wireBreakpoints(breakpoints),
		},
	})
}

// SetStopOnException toggles halting when the debuggee throws.
func (s *Session) SetStopOnException(enabled bool) error {
	return s.conn.SendEnvelope(&protocol.StopOnExceptionEnvelope{
		Header:          protocol.NewHeader(protocol.TypeStopOnException),
		StopOnException: enabled,
	})
}

func wireBreakpoints(breakpoints []types.Breakpoint) []protocol.Breakpoint {
	if breakpoints == nil {
		return nil
	}
	out := make([]protocol.Breakpoint, 0, len(breakpoints))
	for _, bp := range breakpoints {
		out = append(out, protocol.Breakpoint{Line: bp.Line, Column: bp.Column})
	}
	return out
}

// --- Expression helpers ---

// EvaluateSnippet evaluates a JavaScript function source against a single
// JSON-encoded argument inside the selected frame's scope.
func (s *Session) EvaluateSnippet(frameID int, fnSource string, arg any) (*types.Variable, error) {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(frameID, fmt.Sprintf("(%s)(%s)", fnSource, encoded))
}

// EvaluateSnippetGlobal evaluates a JavaScript function source against a
// single JSON-encoded argument in the debuggee's global scope.
func (s *Session) EvaluateSnippetGlobal(frameID int, fnSource string, arg any) (*types.Variable, error) {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return nil, err
	}
	wrapper := fmt.Sprintf("return (%s)(arguments[0])", fnSource)
	return s.Evaluate(frameID, fmt.Sprintf("(new Function(%q))(%s)", wrapper, encoded))
}
