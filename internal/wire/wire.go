package wire

import (
	"bytes"
	"fmt"
	"strings"
)

// LocalSource is the identity written into the source field of every
// request. The admin client always speaks as the management domain.
const LocalSource = "dom0"

// Request describes one call to qubesd. Arg may be empty; its NUL
// terminator is still written on the wire. Payload, when present,
// follows the header with no delimiter and ends when the sender closes
// its write side.
type Request struct {
	Source  string
	Method  string
	Dest    string
	Arg     string
	Payload []byte
}

// Encode serializes r into the byte sequence qubesd expects: the
// source, method, destination and argument fields, each followed by a
// single NUL byte, in that fixed order, then the raw payload verbatim.
func Encode(r Request) []byte {
	var buf bytes.Buffer
	buf.Grow(len(r.Source) + len(r.Method) + len(r.Dest) + len(r.Arg) + 4 + len(r.Payload))
	for _, field := range []string{r.Source, r.Method, r.Dest, r.Arg} {
		buf.WriteString(field)
		buf.WriteByte(0)
	}
	buf.Write(r.Payload)
	return buf.Bytes()
}

// ServiceName builds the qrexec service identifier used by the remote
// transport: the method alone, or method "+" argument.
func ServiceName(method, arg string) string {
	if arg == "" {
		return method
	}
	return method + "+" + arg
}

// ServerError is a rejection reported by the daemon itself, decoded
// from an error envelope. Kind carries the daemon-side exception name
// (for example QubesNoSuchVMError) so callers can branch on it.
type ServerError struct {
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ProtocolError reports a response that matched neither the success
// nor the error envelope. It indicates a framing fault somewhere
// between client and daemon, not a legitimate rejection.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return "malformed qubesd response: " + e.Detail
}

var (
	okPrefix  = []byte("0\x00")
	errPrefix = []byte("2\x00")
)

// Decode interprets a complete raw response. A nil error means success
// and the returned slice is the payload (aliasing raw). Daemon
// rejections come back as *ServerError, anything unrecognized as
// *ProtocolError. Decode never panics, whatever the input.
func Decode(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, okPrefix):
		return raw[len(okPrefix):], nil
	case bytes.HasPrefix(raw, errPrefix):
		return nil, decodeError(raw[len(errPrefix):])
	case len(raw) == 0:
		return nil, &ProtocolError{Detail: "empty response"}
	default:
		return nil, &ProtocolError{Detail: fmt.Sprintf("unknown envelope %q", preview(raw))}
	}
}

// decodeError splits an error envelope into kind and message. The
// canonical separator is NUL; a newline is accepted as a fallback for
// envelopes produced by older daemons. A bare kind decodes with an
// empty message.
func decodeError(body []byte) error {
	kind := body
	var message []byte
	if i := bytes.IndexAny(body, "\x00\n"); i >= 0 {
		kind, message = body[:i], body[i+1:]
	}
	if len(bytes.TrimSpace(kind)) == 0 {
		return &ProtocolError{Detail: "error envelope with empty kind"}
	}
	return &ServerError{
		Kind:    string(kind),
		Message: strings.TrimRight(string(message), "\x00\n"),
	}
}

func preview(raw []byte) []byte {
	const max = 32
	if len(raw) > max {
		return raw[:max]
	}
	return raw
}
