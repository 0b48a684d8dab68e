package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"qubesadm/internal/wire"
)

// Local talks to qubesd over its unix socket. Every call is a fresh
// connect/send/receive/close cycle; the response ends when the daemon
// closes the connection.
type Local struct {
	SocketPath string
}

// Call writes the encoded request, half-closes the connection so the
// daemon sees end-of-payload, and reads until EOF.
func (l *Local) Call(req wire.Request) ([]byte, error) {
	conn, err := net.Dial("unix", l.SocketPath)
	if err != nil {
		return nil, wrapDialError(err, l.SocketPath)
	}
	defer conn.Close()

	if _, err := conn.Write(wire.Encode(req)); err != nil {
		return nil, fmt.Errorf("send request to qubesd: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("finish request to qubesd: %w", err)
		}
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read qubesd response: %w", err)
	}
	return raw, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to qubesd: socket %s not found; is qubesd running?", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to qubesd: socket %s refused the connection; verify qubesd is running", socket)
	case errors.Is(err, syscall.EACCES):
		return fmt.Errorf("connect to qubesd: permission denied on socket %s", socket)
	default:
		return fmt.Errorf("connect to qubesd: %w", err)
	}
}
