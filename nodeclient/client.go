package nodeclient

import "context"

// Replica identifies a single replica endpoint together with the
// credentials used to connect to it.
type Replica struct {
	Addr     string
	User     string
	Password string
}

// Conn is a client connection to a single cluster node.
type Conn interface {
	// Ping verifies that the node behind the connection is alive and
	// accepting requests.
	Ping(ctx context.Context) error

	// Addr returns the address the connection was established to.
	Addr() string

	// IsClosed returns true if the connection is closed and cannot be used.
	// This is not intended to be called during normal operation, but is
	// rather used by the pool to evict dead connections.
	IsClosed() bool

	// Close closes the connection to the node. The connection may be in use
	// by other goroutines, so it should only be closed once the node is
	// removed from the topology.
	Close() error
}

// Dialer establishes connections to cluster nodes.
type Dialer interface {
	DialContext(ctx context.Context, replica Replica) (Conn, error)
}
