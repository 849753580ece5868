package debug

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	errs "github.com/ctagard/mcdbg/internal/errors"
	"github.com/ctagard/mcdbg/internal/protocol"
)

// DefaultRequestTimeout bounds how long a request waits for its response.
const DefaultRequestTimeout = 10 * time.Second

// EventHandler receives the full inner event object of one event envelope.
type EventHandler func(event json.RawMessage)

type result struct {
	body json.RawMessage
	err  error
}

type pendingRequest struct {
	command string
	ch      chan result
	timer   *time.Timer
}

// Connection correlates requests with responses on a Transport and fans
// incoming events out to named handlers. All pending-request state is
// guarded by a single mutex; the read loop is the only goroutine that
// settles responses.
type Connection struct {
	transport *Transport
	timeout   time.Duration
	log       *logrus.Entry

	sendMu  sync.Mutex
	mu      sync.Mutex
	seq     int
	pending map[int]*pendingRequest
	closed  bool

	hmu         sync.Mutex
	handlers    map[string][]EventHandler
	endHandlers []func()
	errHandlers []func(error)

	closing  chan struct{}
	done     chan struct{}
	endOnce  sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConnection wraps a transport and starts its read loop. A zero
// requestTimeout selects DefaultRequestTimeout.
func NewConnection(transport *Transport, requestTimeout time.Duration) *Connection {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	c := &Connection{
		transport: transport,
		timeout:   requestTimeout,
		log:       logrus.WithField("component", "connection"),
		pending:   make(map[int]*pendingRequest),
		handlers:  make(map[string][]EventHandler),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	c.wg.Add(1)
	go c.readLoop()

	return c
}

// On registers a handler for the named event channel. Handlers run on the
// read loop goroutine in wire order.
func (c *Connection) On(event string, handler EventHandler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// OnEnd registers a handler invoked exactly once when the stream ends.
func (c *Connection) OnEnd(handler func()) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.endHandlers = append(c.endHandlers, handler)
}

// OnError registers a handler for transport-level failures. Every transport
// error also leads to teardown, so OnEnd fires afterwards.
func (c *Connection) OnError(handler func(error)) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.errHandlers = append(c.errHandlers, handler)
}

// Done is closed once teardown has completed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// SendRequest emits a request envelope with a fresh sequence number and
// blocks until the correlated response arrives, the per-request timer
// fires, or the connection ends. Sequence allocation and the wire write
// share one critical section, so sequence order equals wire order even
// under concurrent callers.
func (c *Connection) SendRequest(command string, args any) (json.RawMessage, error) {
	c.sendMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.sendMu.Unlock()
		return nil, errs.Closed()
	}

	c.seq++
	seq := c.seq
	pr := &pendingRequest{command: command, ch: make(chan result, 1)}
	pr.timer = time.AfterFunc(c.timeout, func() {
		if c.takePending(seq) != nil {
			pr.ch <- result{err: errs.RequestTimeout(command, c.timeout)}
		}
	})
	c.pending[seq] = pr
	c.mu.Unlock()

	env := &protocol.RequestEnvelope{
		Header: protocol.NewHeader(protocol.TypeRequest),
		Request: protocol.Request{
			RequestSeq: seq,
			Command:    command,
			Args:       args,
		},
	}
	err := c.transport.Send(env)
	c.sendMu.Unlock()
	if err != nil {
		c.takePending(seq)
		pr.timer.Stop()
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"seq": seq, "command": command}).Debug("request sent")

	res := <-pr.ch
	pr.timer.Stop()
	return res.body, res.err
}

// SendEnvelope emits a fire-and-forget envelope. The message must carry its
// own header; it never enters the pending map and no response is awaited.
func (c *Connection) SendEnvelope(msg any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errs.Closed()
	}
	c.mu.Unlock()
	return c.transport.Send(msg)
}

// Close requests orderly shutdown of the underlying stream. It is
// idempotent and returns after teardown has rejected all pending requests.
func (c *Connection) Close() error {
	c.stopOnce.Do(func() {
		close(c.closing)
		_ = c.transport.Close()
	})
	c.wg.Wait()
	return nil
}

func (c *Connection) readLoop() {
	defer c.wg.Done()

	for {
		env, err := c.transport.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.isClosing() {
				c.log.WithError(err).Error("transport failure")
				c.emitError(err)
			}
			c.teardown()
			return
		}
		c.dispatch(env)
	}
}

func (c *Connection) dispatch(env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeResponse:
		c.settle(env)
	case protocol.TypeEvent:
		eventType := env.EventType()
		c.hmu.Lock()
		handlers := c.handlers[eventType]
		c.hmu.Unlock()
		for _, h := range handlers {
			h(env.Event)
		}
	default:
		// Unknown inbound types are ignored for forward compatibility.
		c.log.WithField("type", env.Type).Debug("ignoring unknown envelope")
	}
}

func (c *Connection) settle(env *protocol.Envelope) {
	pr := c.takePending(env.RequestSeq)
	if pr == nil {
		c.log.WithField("seq", env.RequestSeq).Warn("dropping response with no pending request")
		return
	}
	if env.Error != "" {
		pr.ch <- result{err: errs.Remote(pr.command, env.Error)}
		return
	}
	pr.ch <- result{body: env.Body}
}

// takePending removes and returns the pending entry for seq, or nil if it
// has already settled.
func (c *Connection) takePending(seq int) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	pr, ok := c.pending[seq]
	if !ok {
		return nil
	}
	delete(c.pending, seq)
	return pr
}

// teardown rejects every pending request and announces the end of the
// connection, exactly once. The map is cleared before any waiter is woken
// so a waiter reacting synchronously cannot observe stale entries.
func (c *Connection) teardown() {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		snapshot := c.pending
		c.pending = make(map[int]*pendingRequest)
		c.mu.Unlock()

		for _, pr := range snapshot {
			if pr.timer != nil {
				pr.timer.Stop()
			}
			pr.ch <- result{err: errs.Closed()}
		}

		c.hmu.Lock()
		endHandlers := append([]func(){}, c.endHandlers...)
		c.hmu.Unlock()
		for _, h := range endHandlers {
			h()
		}
		close(c.done)
	})
}

func (c *Connection) emitError(err error) {
	c.hmu.Lock()
	handlers := append([]func(error){}, c.errHandlers...)
	c.hmu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

func (c *Connection) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}
