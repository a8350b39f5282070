package cluster

import (
	"fmt"
	"net"
	"strconv"

	"github.com/stratumdb/stratum/config"
)

// Address is the identity of a single node in the topology. It is immutable
// once constructed.
type Address struct {
	Host            string
	Port            int
	ResolvedAddr    *net.TCPAddr
	User            string
	Password        string
	DefaultDatabase string

	// ReplicaNum is the 1-based position of the address within its shard.
	ReplicaNum int
}

// newAddress builds an Address from a configuration node entry. A failed
// endpoint resolution is a hard error: it aborts construction of the whole
// cluster rather than producing a degraded topology.
func newAddress(node config.Node, replicaNum int, resolve ResolveFn) (Address, error) {
	resolved, err := resolve(node.Host, node.Port)
	if err != nil {
		return Address{}, fmt.Errorf("resolve %s:%d: %w", node.Host, node.Port, err)
	}

	return Address{
		Host:            node.Host,
		Port:            node.Port,
		ResolvedAddr:    resolved,
		User:            node.User,
		Password:        node.Password,
		DefaultDatabase: node.DefaultDatabase,
		ReplicaNum:      replicaNum,
	}, nil
}

// newAddressFromString builds an Address from a literal "host:port" string
// plus explicit credentials. Used for ad-hoc topologies given as host lists.
func newAddressFromString(hostPort, user, password string, replicaNum int, resolve ResolveFn) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Address{}, fmt.Errorf("malformed address %q: %w", hostPort, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Address{}, fmt.Errorf("malformed port in %q: %w", hostPort, err)
	}

	return newAddress(config.Node{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}, replicaNum, resolve)
}

// Key returns the "host:port" form of the address. Two addresses with the
// same key are considered the same node for dedup and fingerprinting.
func (a Address) Key() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (a Address) String() string {
	return a.Key()
}

// Equal compares addresses by host and port only.
func (a Address) Equal(other Address) bool {
	return a.Host == other.Host && a.Port == other.Port
}
