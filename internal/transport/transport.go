package transport

import (
	"fmt"
	"os"
	"strings"

	"qubesadm/internal/wire"
)

// DefaultSocketPath is the well-known qubesd admin socket in dom0.
const DefaultSocketPath = "/var/run/qubesd.sock"

// DefaultClient is the qrexec proxy executable used by the remote
// variant, resolved from PATH.
const DefaultClient = "qrexec-client-vm"

// Caller performs one blocking qubesd call and returns the complete,
// undecoded response buffer. Implementations acquire their channel or
// process immediately before use and release it before returning.
type Caller interface {
	Call(req wire.Request) ([]byte, error)
}

// Select picks the transport variant once, at application construction.
// Mode is "local", "remote", or "auto"; auto chooses Local when the
// qubesd socket exists (we are in dom0) and Remote otherwise. Empty
// socketPath and clientPath fall back to the defaults.
func Select(mode, socketPath, clientPath string) (Caller, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "local":
		return &Local{SocketPath: socketPath}, nil
	case "remote":
		return &Remote{ClientPath: clientPath}, nil
	case "auto", "":
		if _, err := os.Stat(socketPath); err == nil {
			return &Local{SocketPath: socketPath}, nil
		}
		return &Remote{ClientPath: clientPath}, nil
	default:
		return nil, fmt.Errorf("transport: unsupported mode %q", mode)
	}
}
