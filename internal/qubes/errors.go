package qubes

import (
	"errors"

	"qubesadm/internal/wire"
)

// ErrVMNotFound reports a lookup for a qube the daemon does not know
// about (after a cache refresh).
var ErrVMNotFound = errors.New("no such qube")

// Daemon-side exception kinds that callers commonly branch on.
const (
	KindNoSuchVM       = "QubesNoSuchVMError"
	KindNoSuchProperty = "QubesNoSuchPropertyError"
	KindAccessDenied   = "QubesDaemonAccessError"
	KindNotImplemented = "NotImplementedError"
)

// IsServerKind reports whether err carries a daemon rejection of the
// given kind anywhere in its chain.
func IsServerKind(err error, kind string) bool {
	var srvErr *wire.ServerError
	return errors.As(err, &srvErr) && srvErr.Kind == kind
}
