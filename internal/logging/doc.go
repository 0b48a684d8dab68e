// Package logging constructs the slog loggers used across qubesadm.
//
// Two formats exist: a compact console handler writing
// "TIMESTAMP LEVEL message key=value ..." lines to stderr, and a JSON
// handler for machine consumption. Command code builds its logger once
// from config via NewFromConfig; library code receives a *slog.Logger
// and never constructs its own.
package logging
