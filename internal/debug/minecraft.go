package debug

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	errs "github.com/ctagard/mcdbg/internal/errors"
	"github.com/ctagard/mcdbg/internal/protocol"
	"github.com/ctagard/mcdbg/pkg/types"
)

// Protocol version thresholds published by the host. Gates are strictly
// monotonic: a debuggee speaking version N supports every feature gated at
// or below N.
const (
	versionTargetModule        = 2 // handshake echoes target_module_uuid
	versionPasscode            = 4 // handshake echoes passcode
	versionFlatCommand         = 4 // minecraftCommand with flat payload
	versionNestedCommand       = 5 // minecraftCommand with nested payload
	versionProfiler            = 5 // startProfiler / stopProfiler
	versionVerifiedBreakpoints = 6 // breakpoints delivered as a request
)

// ProtocolInfo is the locally-configured identity echoed back to the
// debuggee on every protocol handshake.
type ProtocolInfo struct {
	Version          int
	TargetModuleUUID uuid.UUID
	Passcode         string
}

// MinecraftSession extends Session with the host dialect: protocol version
// negotiation, print/stat/profiler events, slash commands, and verified
// breakpoint delivery on newer protocols.
type MinecraftSession struct {
	*Session
	info *ProtocolInfo
	log  *logrus.Entry

	mu              sync.Mutex
	protocolVersion int

	hmu              sync.Mutex
	logHandlers      []func(types.LogMessage)
	statHandlers     []func(json.RawMessage)
	profilerHandlers []func(json.RawMessage)
}

// NewMinecraftSession wraps a Connection in the host dialect. info may be
// nil, in which case handshake events are tracked but not echoed.
func NewMinecraftSession(conn *Connection, info *ProtocolInfo) *MinecraftSession {
	m := &MinecraftSession{
		Session: NewSession(conn),
		info:    info,
		log:     logrus.WithField("component", "minecraft"),
	}

	conn.On(protocol.EventProtocol, m.handleProtocolEvent)
	conn.On(protocol.EventPrint, m.handlePrintEvent)
	conn.On(protocol.EventStat, m.handleStatEvent)
	conn.On(protocol.EventStat2, m.handleStatEvent)
	conn.On(protocol.EventProfilerCapture, m.handleProfilerCapture)

	return m
}

// ProtocolVersion returns the version from the most recent handshake event,
// or 0 before any handshake has been seen.
func (m *MinecraftSession) ProtocolVersion() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protocolVersion
}

// OnLog registers a handler for debuggee print output.
func (m *MinecraftSession) OnLog(handler func(types.LogMessage)) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.logHandlers = append(m.logHandlers, handler)
}

// OnStat registers a handler for raw stat payloads. Merging the stat tree
// is the observer's business.
func (m *MinecraftSession) OnStat(handler func(json.RawMessage)) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.statHandlers = append(m.statHandlers, handler)
}

// OnProfilerCapture registers a handler for completed profiler captures.
func (m *MinecraftSession) OnProfilerCapture(handler func(json.RawMessage)) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.profilerHandlers = append(m.profilerHandlers, handler)
}

func (m *MinecraftSession) handleProtocolEvent(event json.RawMessage) {
	var body protocol.ProtocolEventBody
	if err := json.Unmarshal(event, &body); err != nil {
		m.log.WithError(err).Warn("discarding malformed protocol event")
		return
	}

	m.mu.Lock()
	m.protocolVersion = body.Version
	m.mu.Unlock()
	m.log.WithField("version", body.Version).Debug("debuggee protocol version")

	if m.info == nil {
		return
	}

	env := &protocol.HandshakeEnvelope{
		Header: protocol.Header{Version: m.info.Version, Type: protocol.TypeProtocol},
	}
	if body.Version >= versionTargetModule && m.info.TargetModuleUUID != uuid.Nil {
		env.TargetModuleUUID = m.info.TargetModuleUUID.String()
	}
	if body.Version >= versionPasscode && m.info.Passcode != "" {
		env.Passcode = m.info.Passcode
	}
	if err := m.Connection().SendEnvelope(env); err != nil {
		m.log.WithError(err).Error("failed to answer protocol handshake")
	}
}

func (m *MinecraftSession) handlePrintEvent(event json.RawMessage) {
	var body protocol.PrintEventBody
	if err := json.Unmarshal(event, &body); err != nil {
		m.log.WithError(err).Warn("discarding malformed print event")
		return
	}
	msg := types.LogMessage{Message: body.Message, Severity: types.LogSeverity(body.LogLevel)}
	m.hmu.Lock()
	handlers := append([]func(types.LogMessage){}, m.logHandlers...)
	m.hmu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

func (m *MinecraftSession) handleStatEvent(event json.RawMessage) {
	m.hmu.Lock()
	handlers := append([]func(json.RawMessage){}, m.statHandlers...)
	m.hmu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

func (m *MinecraftSession) handleProfilerCapture(event json.RawMessage) {
	m.hmu.Lock()
	handlers := append([]func(json.RawMessage){}, m.profilerHandlers...)
	m.hmu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

// RunCommand submits a slash command to the debuggee, picking the payload
// shape the negotiated protocol version expects.
func (m *MinecraftSession) RunCommand(command, dimensionType string) error {
	v := m.ProtocolVersion()
	switch {
	case v >= versionNestedCommand:
		return m.Connection().SendEnvelope(&protocol.NestedCommandEnvelope{
			Header:  protocol.NewHeader(protocol.TypeCommand),
			Command: protocol.CommandBody{Command: command, DimensionType: dimensionType},
		})
	case v >= versionFlatCommand:
		return m.Connection().SendEnvelope(&protocol.CommandEnvelope{
			Header:        protocol.NewHeader(protocol.TypeCommand),
			Command:       command,
			DimensionType: dimensionType,
		})
	default:
		return errs.VersionGated("minecraftCommand", versionFlatCommand, v)
	}
}

// StartProfiler begins a script profiling capture for one module.
func (m *MinecraftSession) StartProfiler(targetModule uuid.UUID) error {
	if v := m.ProtocolVersion(); v < versionProfiler {
		return errs.VersionGated("startProfiler", versionProfiler, v)
	}
	return m.Connection().SendEnvelope(&protocol.StartProfilerEnvelope{
		Header:   protocol.NewHeader(protocol.TypeStartProfiler),
		Profiler: protocol.StartProfilerBody{TargetModuleUUID: targetModule.String()},
	})
}

// StopProfiler ends the running capture and asks the debuggee to write it
// under capturesPath.
func (m *MinecraftSession) StopProfiler(capturesPath string, targetModule uuid.UUID) error {
	if v := m.ProtocolVersion(); v < versionProfiler {
		return errs.VersionGated("stopProfiler", versionProfiler, v)
	}
	return m.Connection().SendEnvelope(&protocol.StopProfilerEnvelope{
		Header: protocol.NewHeader(protocol.TypeStopProfiler),
		Profiler: protocol.StopProfilerBody{
			CapturesPath:     capturesPath,
			TargetModuleUUID: targetModule.String(),
		},
	})
}

// SetBreakpoints replaces the breakpoint set for one source path. From
// protocol version 6 the set is delivered as an awaitable request and the
// debuggee reports per-breakpoint verification; the request is
// authoritative and no envelope is sent. Older protocols get the
// fire-and-forget envelope and a synthetically verified status per
// breakpoint.
func (m *MinecraftSession) SetBreakpoints(path string, breakpoints []types.Breakpoint) ([]types.BreakpointStatus, error) {
	if m.ProtocolVersion() >= versionVerifiedBreakpoints {
		body, err := m.Connection().SendRequest(protocol.CommandSetBreakpoints, protocol.SetBreakpointsArgs{
			Path:        path,
			Breakpoints: wireBreakpoints(breakpoints),
		})
		if err != nil {
			return nil, err
		}

		var resp protocol.SetBreakpointsBody
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, errs.DecodeFailed(err)
		}
		statuses := make([]types.BreakpointStatus, 0, len(resp.Breakpoints))
		for _, bv := range resp.Breakpoints {
			statuses = append(statuses, types.BreakpointStatus{
				Verified: bv.Verified,
				Line:     bv.Line,
				Message:  bv.Message,
			})
		}
		return statuses, nil
	}

	if err := m.Session.SetBreakpoints(path, breakpoints); err != nil {
		return nil, err
	}
	statuses := make([]types.BreakpointStatus, len(breakpoints))
	for i, bp := range breakpoints {
		statuses[i] = types.BreakpointStatus{Verified: true, Line: bp.Line}
	}
	return statuses, nil
}
