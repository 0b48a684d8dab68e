// Package transport moves encoded qubesd calls to the daemon and
// returns the raw response buffer.
//
// Two variants exist. Local connects to the qubesd unix socket and is
// used when the client runs in dom0. Remote spawns a qrexec proxy
// process and is used when the client runs in a peer VM that has to
// cross the isolation boundary. Both open a fresh channel per call,
// release it on every exit path, and normalize their distinct failure
// modes (connect errors vs nonzero process exit) into plain errors
// before the dispatcher sees them.
//
// Neither variant retries, pools connections, or applies timeouts. A
// hung daemon blocks the calling process; acceptable for a short-lived
// CLI invocation.
package transport
