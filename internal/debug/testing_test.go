package debug

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/ctagard/mcdbg/internal/protocol"
)

// fakeDebuggee is the far end of a net.Pipe speaking the real framing, so
// connection and session tests exercise the byte-level protocol.
type fakeDebuggee struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func newTestConnection(t *testing.T, timeout time.Duration) (*Connection, *fakeDebuggee) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	conn := NewConnection(NewStreamTransport(clientEnd), timeout)
	f := &fakeDebuggee{t: t, conn: serverEnd, reader: bufio.NewReader(serverEnd)}
	t.Cleanup(func() {
		_ = serverEnd.Close()
		_ = conn.Close()
	})
	return conn, f
}

// wireRequest is the debuggee's view of a request envelope.
type wireRequest struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Request struct {
		RequestSeq int             `json:"request_seq"`
		Command    string          `json:"command"`
		Args       json.RawMessage `json:"args"`
	} `json:"request"`
}

// readRaw reads one envelope as loose JSON for shape assertions.
func (f *fakeDebuggee) readRaw() (map[string]any, error) {
	body, err := protocol.ReadFrame(f.reader)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// readRequest reads one envelope and decodes it as a request.
func (f *fakeDebuggee) readRequest() (wireRequest, error) {
	var req wireRequest
	body, err := protocol.ReadFrame(f.reader)
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(body, &req)
	return req, err
}

func (f *fakeDebuggee) send(msg any) error {
	return protocol.WriteFrame(f.conn, msg)
}

func (f *fakeDebuggee) respond(seq int, body any) error {
	return f.send(map[string]any{
		"version":     protocol.RequestVersion,
		"type":        protocol.TypeResponse,
		"request_seq": seq,
		"body":        body,
	})
}

func (f *fakeDebuggee) respondError(seq int, message string) error {
	return f.send(map[string]any{
		"version":     protocol.RequestVersion,
		"type":        protocol.TypeResponse,
		"request_seq": seq,
		"error":       message,
	})
}

func (f *fakeDebuggee) sendEvent(event any) error {
	return f.send(map[string]any{
		"version": protocol.RequestVersion,
		"type":    protocol.TypeEvent,
		"event":   event,
	})
}

func (f *fakeDebuggee) close() {
	_ = f.conn.Close()
}

// wireVariable builds one child entry for a fake variables table.
func wireVariable(name, value, typ string, ref int) map[string]any {
	return map[string]any{
		"name":               name,
		"value":              value,
		"type":               typ,
		"variablesReference": ref,
	}
}

// serveVariables answers every variables request from the table until the
// stream ends. Paths listed in fail are rejected with a remote error.
func (f *fakeDebuggee) serveVariables(table map[int][]map[string]any, fail map[int]string) {
	go func() {
		for {
			req, err := f.readRequest()
			if err != nil {
				return
			}
			if req.Request.Command != protocol.CommandVariables {
				_ = f.respondError(req.Request.RequestSeq, "unexpected command "+req.Request.Command)
				continue
			}
			var args protocol.VariablesArgs
			if err := json.Unmarshal(req.Request.Args, &args); err != nil {
				_ = f.respondError(req.Request.RequestSeq, "bad args")
				continue
			}
			if msg, ok := fail[args.VariablesReference]; ok {
				_ = f.respondError(req.Request.RequestSeq, msg)
				continue
			}
			_ = f.respond(req.Request.RequestSeq, table[args.VariablesReference])
		}
	}()
}
