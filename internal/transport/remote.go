package transport

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"qubesadm/internal/wire"
)

// Remote performs the call from a peer VM by spawning a qrexec proxy
// process addressed at the destination and service name. The request
// payload goes to the process stdin; the response is whatever the
// process wrote to stdout before exiting.
type Remote struct {
	// ClientPath overrides the proxy executable; empty means
	// DefaultClient resolved from PATH.
	ClientPath string
}

// Call runs the proxy process to completion. A nonzero exit is a
// transport failure carrying the captured stderr text, regardless of
// what was written to stdout.
func (r *Remote) Call(req wire.Request) ([]byte, error) {
	client := r.ClientPath
	if client == "" {
		client = DefaultClient
	}
	service := wire.ServiceName(req.Method, req.Arg)

	cmd := exec.Command(client, req.Dest, service)
	cmd.Stdin = bytes.NewReader(req.Payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitErr.Error()
			}
			return nil, fmt.Errorf("service call %s to %s failed: %s", service, req.Dest, msg)
		}
		return nil, fmt.Errorf("run %s: %w", client, err)
	}
	return stdout.Bytes(), nil
}
