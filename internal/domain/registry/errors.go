package registry

import "errors"

// ErrTooManyConnections is returned by Hub.Attach/Cell.Attach when a user already
// holds MaxConnectionsPerUser live sockets (spec §4.1, §5, §7 "Capacity
// faults"). The caller is expected to close the new socket with a
// protocol-visible "Too many connections" reason before it ever reaches
// the OPEN state.
var ErrTooManyConnections = errors.New("registry: too many connections for user")

// MaxConnectionsPerUser is the per-user connection cap (spec §4.1,
// default 5).
const MaxConnectionsPerUser = 5
