package qubes

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qubesadm/internal/transport"
	"qubesadm/internal/wire"
)

// App is the root application object. It owns the transport selected
// at construction, the cached VM collection, and property access for
// the global (dom0) scope.
type App struct {
	PropertyHolder

	caller transport.Caller
	logger *slog.Logger

	// Domains is the lazily populated VM collection.
	Domains *VMCollection
}

// New builds an App around an already-selected transport. A nil logger
// disables call logging.
func New(caller transport.Caller, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	app := &App{caller: caller, logger: logger}
	app.PropertyHolder = PropertyHolder{app: app, methodPrefix: "mgmt.global.", dest: "dom0"}
	app.Domains = newVMCollection(app)
	return app
}

// Call performs one qubesd call and returns the decoded success
// payload. Daemon rejections surface as *wire.ServerError, malformed
// responses as *wire.ProtocolError, and transport failures as wrapped
// plain errors; callers never see raw bytes on an error path.
func (a *App) Call(dest, method, arg string, payload []byte) ([]byte, error) {
	callID := uuid.NewString()
	started := time.Now()

	raw, err := a.caller.Call(wire.Request{
		Source:  wire.LocalSource,
		Method:  method,
		Dest:    dest,
		Arg:     arg,
		Payload: payload,
	})
	if err != nil {
		a.logger.Debug("qubesd call failed",
			"call_id", callID, "dest", dest, "method", method, "error", err)
		return nil, err
	}

	decoded, err := wire.Decode(raw)
	a.logger.Debug("qubesd call",
		"call_id", callID, "dest", dest, "method", method,
		"duration", time.Since(started), "response_bytes", len(raw), "rejected", err != nil)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
