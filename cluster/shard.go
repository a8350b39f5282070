package cluster

import "github.com/stratumdb/stratum/nodeclient"

// ShardInfo describes one shard of a cluster: which of its replicas are
// local to the executing node, and how to reach the remote ones.
type ShardInfo struct {
	// ShardNum is the 1-based shard number. It is stable for the lifetime
	// of the cluster and is never renumbered by sub-views.
	ShardNum int

	// Weight is the shard's share of the sharding-key space. A weight of
	// zero keeps the shard in the topology but makes it unreachable via
	// key-based routing.
	Weight int

	// DirNames are the directories used for asynchronous write bookkeeping
	// associated with the shard. Opaque to the topology core.
	DirNames []string

	// LocalAddresses are the shard's replicas that live on the executing
	// node. Sub-queries for a local shard bypass the connection pool.
	LocalAddresses []Address

	// Pool is the failover connection pool over the shard's remote
	// replicas. Nil iff the shard has no remote replicas.
	Pool nodeclient.FailoverPool
}

// IsLocal returns true if the shard has at least one replica on the
// executing node.
func (s *ShardInfo) IsLocal() bool {
	return len(s.LocalAddresses) > 0
}

// HasRemoteConnections returns true if the shard has remote replicas
// reachable through its connection pool.
func (s *ShardInfo) HasRemoteConnections() bool {
	return s.Pool != nil
}

// LocalNodeCount returns the number of the shard's replicas that live on
// the executing node.
func (s *ShardInfo) LocalNodeCount() int {
	return len(s.LocalAddresses)
}
