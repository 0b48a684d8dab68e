// Package wire implements the qubesd call protocol: NUL-delimited
// request headers and the success/error response envelopes.
//
// The protocol has no length framing. A request ends when the sender
// stops writing and closes its side of the channel; a response ends
// when the daemon (or the proxy process relaying for it) closes the
// channel. Both transports rely on that, so encoding and decoding here
// operate on complete buffers only.
//
// Decoding is total: every byte sequence maps to a success payload, a
// *ServerError, or a *ProtocolError. Callers never see raw bytes on an
// error path.
package wire
