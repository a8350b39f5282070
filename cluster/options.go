package cluster

import (
	"net"
	"strconv"

	kitlog "github.com/go-kit/log"

	"github.com/stratumdb/stratum/nodeclient"
)

// ResolveFn resolves a host and port into a network endpoint. It is
// injected so that topologies can be built in tests without touching DNS.
type ResolveFn func(host string, port int) (*net.TCPAddr, error)

// LocalityFn reports whether the given address belongs to the executing
// node itself, in which case sub-queries for its shard are executed
// in-process instead of going through a connection pool. The answer
// depends on the node's own identity, so it is injected at construction
// time.
type LocalityFn func(addr Address) bool

// Options carries the injected collaborators used during cluster
// construction.
type Options struct {
	Logger  kitlog.Logger
	Resolve ResolveFn
	IsLocal LocalityFn
	Dialer  nodeclient.Dialer
	Policy  nodeclient.SelectionPolicy
}

// DefaultOptions returns options that resolve addresses through the system
// resolver, treat loopback addresses as local, and dial replicas over GRPC
// in their declaration order.
func DefaultOptions() Options {
	return Options{
		Logger:  kitlog.NewNopLogger(),
		Resolve: ResolveTCP,
		IsLocal: LoopbackLocal,
		Dialer:  nodeclient.NewGrpcDialer(),
		Policy:  &nodeclient.FirstAlive{},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.Logger == nil {
		o.Logger = def.Logger
	}

	if o.Resolve == nil {
		o.Resolve = def.Resolve
	}

	if o.IsLocal == nil {
		o.IsLocal = def.IsLocal
	}

	if o.Dialer == nil {
		o.Dialer = def.Dialer
	}

	if o.Policy == nil {
		o.Policy = def.Policy
	}

	return o
}

// ResolveTCP resolves the endpoint through the system resolver.
func ResolveTCP(host string, port int) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// LoopbackLocal treats addresses that resolve to a loopback interface as
// belonging to the executing node.
func LoopbackLocal(addr Address) bool {
	return addr.ResolvedAddr != nil && addr.ResolvedAddr.IP.IsLoopback()
}
