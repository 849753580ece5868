// Package debug implements a client for the script debug protocol spoken
// by the debug listener embedded in the host application.
//
// The protocol is a framed JSON dialect loosely patterned on the Debug
// Adapter Protocol. This package provides:
//   - Transport: low-level envelope sending/receiving over TCP or any stream
//   - Connection: request/response correlation, event fan-out, timeouts
//   - Session: high-level debugger operations (step, evaluate, stack,
//     scopes, variables) and recursive object-graph inspection
//   - MinecraftSession: the host-extended dialect with version negotiation,
//     log/stat events, slash commands, and the script profiler
package debug

import (
	"bufio"
	"io"
	"net"
	"sync"

	errs "github.com/ctagard/mcdbg/internal/errors"
	"github.com/ctagard/mcdbg/internal/protocol"
)

// Transport handles framed envelope exchange with a debug listener.
type Transport struct {
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewTCPTransport creates a transport connected to a TCP address.
func NewTCPTransport(address string) (*Transport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errs.ConnectFailed(address, err)
	}
	return NewStreamTransport(conn), nil
}

// NewStreamTransport creates a transport over an existing duplex stream.
func NewStreamTransport(rwc io.ReadWriteCloser) *Transport {
	return &Transport{
		conn:   rwc,
		reader: bufio.NewReader(rwc),
		writer: bufio.NewWriter(rwc),
	}
}

// Send frames and writes one envelope. Writes are serialised so concurrent
// senders cannot interleave frames.
func (t *Transport) Send(msg any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := protocol.WriteFrame(t.writer, msg); err != nil {
		return err
	}
	if err := t.writer.Flush(); err != nil {
		return err
	}
	return nil
}

// Receive reads and decodes one envelope.
func (t *Transport) Receive() (*protocol.Envelope, error) {
	body, err := protocol.ReadFrame(t.reader)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeEnvelope(body)
}

// Close closes the underlying stream.
func (t *Transport) Close() error {
	return t.conn.Close()
}
