// Package devices exposes per-qube, per-class device collections:
// listing what a backend domain offers, what a frontend has attached
// or assigned, and the attach/detach/assign/unassign mutations.
//
// Every operation is one dispatcher round trip; the package holds no
// state and callers re-query lists after mutating. Devices are
// addressed as BACKEND+IDENT, matching the daemon's service argument
// convention.
package devices
