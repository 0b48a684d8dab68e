// Package qubes provides the application object every command works
// through: the call dispatcher, the cached VM collection, and generic
// property access for both the global scope and individual qubes.
//
// App.Call is the single seam between commands and the daemon. It
// frames the request, hands it to the selected transport variant, and
// converts the decoded outcome into either a success payload or a
// structured error; nothing above it touches raw response bytes.
//
// The VM collection is a lazy, force-invalidatable cache of the
// daemon's VM list. It is populated on first access, never expires on
// its own, and must be force-refreshed by callers after any mutation
// they perform. It is not safe for concurrent use; the CLI is
// single-threaded by design.
package qubes
