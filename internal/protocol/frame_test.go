package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ctagard/mcdbg/internal/errors"
)

func TestFrameRoundTrip(t *testing.T) {
	env := &RequestEnvelope{
		Header: NewHeader(TypeRequest),
		Request: Request{
			RequestSeq: 7,
			Command:    CommandEvaluate,
			Args:       EvaluateArgs{FrameID: 0, Context: ContextWatch, Expression: "1+1"},
		},
	}
	framed, err := EncodeFrame(env)
	require.NoError(t, err)

	chunkings := map[string]func([]byte) io.Reader{
		"one giant chunk": func(b []byte) io.Reader { return bytes.NewReader(b) },
		"one byte chunks": func(b []byte) io.Reader { return iotest.OneByteReader(bytes.NewReader(b)) },
		"halved chunks":   func(b []byte) io.Reader { return iotest.HalfReader(bytes.NewReader(b)) },
	}

	for name, chunked := range chunkings {
		t.Run(name, func(t *testing.T) {
			r := chunked(framed)
			body, err := ReadFrame(r)
			require.NoError(t, err)

			decoded, err := DecodeEnvelope(body)
			require.NoError(t, err)
			assert.Equal(t, TypeRequest, decoded.Type)
			assert.Equal(t, RequestVersion, decoded.Version)

			// Exactly the produced bytes are consumed.
			_, err = r.Read(make([]byte, 1))
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestFrameBackToBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &ResumeEnvelope{Header: NewHeader(TypeResume)}))
	require.NoError(t, WriteFrame(&buf, &StopOnExceptionEnvelope{
		Header:          NewHeader(TypeStopOnException),
		StopOnException: true,
	}))

	r := iotest.OneByteReader(&buf)

	first, err := ReadFrame(r)
	require.NoError(t, err)
	env, err := DecodeEnvelope(first)
	require.NoError(t, err)
	assert.Equal(t, TypeResume, env.Type)

	second, err := ReadFrame(r)
	require.NoError(t, err)
	env, err = DecodeEnvelope(second)
	require.NoError(t, err)
	assert.Equal(t, TypeStopOnException, env.Type)

	_, err = ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameHeaderFormatting(t *testing.T) {
	// 30 bytes of JSON plus the counted trailing newline is 0x1f.
	body := json.RawMessage(`{"version":1,"type":"resumes"}`)
	require.Len(t, []byte(body), 30)

	framed, err := EncodeFrame(body)
	require.NoError(t, err)
	assert.Equal(t, "0000001f\n", string(framed[:9]))
	assert.Equal(t, byte('\n'), framed[len(framed)-1])
}

func TestFrameBodyEndsWithNewline(t *testing.T) {
	framed, err := EncodeFrame(&ResumeEnvelope{Header: NewHeader(TypeResume)})
	require.NoError(t, err)

	body, err := ReadFrame(bytes.NewReader(framed))
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), body[len(body)-1])
}

func TestFrameMalformedHeader(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("zzzzzzzz\n{}\n"))
	assert.True(t, errs.HasCode(err, errs.CodeFramingError), "got %v", err)

	_, err = ReadFrame(strings.NewReader("000000040000\n"))
	assert.True(t, errs.HasCode(err, errs.CodeFramingError), "got %v", err)
}

func TestFrameShortBody(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("0000000a\n{}"))
	assert.True(t, errs.IsClosed(err), "got %v", err)
}

func TestFrameTruncatedHeader(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("0000"))
	assert.True(t, errs.IsClosed(err), "got %v", err)

	_, err = ReadFrame(strings.NewReader(""))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeEnvelopeRejectsBadJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{not json}\n"))
	assert.True(t, errs.HasCode(err, errs.CodeDecodeError), "got %v", err)
}

func TestEnvelopeEventType(t *testing.T) {
	env := &Envelope{
		Type:  TypeEvent,
		Event: json.RawMessage(`{"type":"StoppedEvent","thread":1,"reason":"breakpoint"}`),
	}
	assert.Equal(t, EventStopped, env.EventType())

	env.Event = json.RawMessage(`not json`)
	assert.Equal(t, "", env.EventType())
}
