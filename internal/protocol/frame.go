package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	errs "github.com/ctagard/mcdbg/internal/errors"
)

// Wire framing: every JSON body is preceded by exactly nine bytes, an
// 8-character lowercase hexadecimal length followed by a newline. The
// length counts the body including its own trailing newline.
const headerLen = 9

// EncodeFrame serialises msg and frames it as header + body in a single
// buffer, so the whole envelope reaches the stream in one write.
func EncodeFrame(msg any) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	body = append(body, '\n')

	buf := make([]byte, 0, headerLen+len(body))
	buf = fmt.Appendf(buf, "%08x\n", len(body))
	return append(buf, body...), nil
}

// WriteFrame frames msg and writes it to w.
func WriteFrame(w io.Writer, msg any) error {
	buf, err := EncodeFrame(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads exactly one framed body from r. It blocks until the nine
// header bytes and then the announced body length have been consumed, so it
// is insensitive to how the stream chunks its reads. A clean end of stream
// before any header byte returns io.EOF; a stream that ends mid-frame
// returns a connection-closed error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.Closed().WithCause(err)
	}

	if hdr[headerLen-1] != '\n' {
		return nil, errs.FramingFailed(fmt.Sprintf("header %q is not newline-terminated", hdr[:]), nil)
	}
	n, err := strconv.ParseUint(string(hdr[:headerLen-1]), 16, 32)
	if err != nil {
		return nil, errs.FramingFailed(fmt.Sprintf("unreadable length %q", hdr[:headerLen-1]), err)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errs.Closed().WithCause(err)
	}
	return body, nil
}

// DecodeEnvelope parses one framed body into the generic inbound shape.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errs.DecodeFailed(err)
	}
	return &env, nil
}
