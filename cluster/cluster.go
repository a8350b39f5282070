package cluster

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/murmur3"

	"github.com/stratumdb/stratum/config"
	"github.com/stratumdb/stratum/nodeclient"
)

var (
	// ErrEmptyCluster is returned when a shard is requested from a cluster
	// with no shards. Every cluster must be backed by at least one
	// configured node, so this indicates a construction bug rather than a
	// normal empty state.
	ErrEmptyCluster = errors.New("cluster is empty")

	// ErrNoRoutableShards is returned by key-based routing when the total
	// weight of all shards is zero.
	ErrNoRoutableShards = errors.New("cluster has no routable shards")
)

// Cluster is an immutable shard/replica topology. It is built to completion
// before being published and is never mutated afterwards, so concurrent
// readers need no synchronization.
//
// At most one of the two address views is populated. The flat view holds
// one address per shard and is used for flat node lists where failover is
// not a concern. The grouped view holds the replica addresses of each shard
// and is used when replicas form failover groups.
type Cluster struct {
	shards                []ShardInfo
	addresses             []Address
	addressesWithFailover [][]Address
	slotToShard           []int
	fingerprint           string
	localShards           int
	remoteShards          int
}

// NewFromConfig builds a cluster from a named configuration subsection. The
// subsection holds either flat node entries, each becoming its own
// single-replica shard of weight 1, or shard entries whose replicas form
// failover groups with an optional weight.
func NewFromConfig(name string, conf config.Cluster, settings config.Settings, opts Options) (*Cluster, error) {
	opts = opts.withDefaults()

	if len(conf.Nodes) > 0 && len(conf.Shards) > 0 {
		return nil, fmt.Errorf("cluster %q: nodes and shards are mutually exclusive", name)
	}

	if len(conf.Nodes) == 0 && len(conf.Shards) == 0 {
		return nil, fmt.Errorf("cluster %q: no nodes or shards defined", name)
	}

	c := &Cluster{}

	for i, node := range conf.Nodes {
		addr, err := newAddress(node, 1, opts.Resolve)
		if err != nil {
			return nil, fmt.Errorf("cluster %q: node %d: %w", name, i, err)
		}

		c.addresses = append(c.addresses, addr)

		shard := ShardInfo{
			ShardNum: i + 1,
			Weight:   1,
		}

		if opts.IsLocal(addr) {
			shard.LocalAddresses = []Address{addr}
		} else {
			shard.DirNames = []string{addr.Key()}
			shard.Pool = newShardPool([]Address{addr}, settings, opts)
		}

		c.shards = append(c.shards, shard)
	}

	for i, sh := range conf.Shards {
		if len(sh.Replicas) == 0 {
			return nil, fmt.Errorf("cluster %q: shard %d has no replicas", name, i)
		}

		weight := sh.ShardWeight()
		if weight < 0 {
			return nil, fmt.Errorf("cluster %q: shard %d has negative weight", name, i)
		}

		replicas := make([]Address, 0, len(sh.Replicas))

		for ri, rep := range sh.Replicas {
			addr, err := newAddress(rep, ri+1, opts.Resolve)
			if err != nil {
				return nil, fmt.Errorf("cluster %q: shard %d: replica %d: %w", name, i, ri, err)
			}

			replicas = append(replicas, addr)
		}

		c.addressesWithFailover = append(c.addressesWithFailover, replicas)
		c.shards = append(c.shards, buildShard(i+1, weight, replicas, sh.InternalReplication, settings, opts))
	}

	c.initMisc()

	return c, nil
}

// NewFromReplicas builds a cluster from an explicit ordered list of shards,
// each given as a list of "host:port" strings, sharing a single set of
// credentials. Every shard gets the default weight of 1.
func NewFromReplicas(groups [][]string, user, password string, settings config.Settings, opts Options) (*Cluster, error) {
	opts = opts.withDefaults()

	c := &Cluster{}

	for i, group := range groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("shard %d has no replicas", i)
		}

		replicas := make([]Address, 0, len(group))

		for ri, hostPort := range group {
			addr, err := newAddressFromString(hostPort, user, password, ri+1, opts.Resolve)
			if err != nil {
				return nil, fmt.Errorf("shard %d: replica %d: %w", i, ri, err)
			}

			replicas = append(replicas, addr)
		}

		c.addressesWithFailover = append(c.addressesWithFailover, replicas)
		c.shards = append(c.shards, buildShard(i+1, 1, replicas, false, settings, opts))
	}

	c.initMisc()

	return c, nil
}

// buildShard partitions the replicas into local and remote ones and builds
// the failover pool when the shard has at least one remote replica.
func buildShard(shardNum, weight int, replicas []Address, internalReplication bool, settings config.Settings, opts Options) ShardInfo {
	var local, remote []Address

	for _, addr := range replicas {
		if opts.IsLocal(addr) {
			local = append(local, addr)
		} else {
			remote = append(remote, addr)
		}
	}

	shard := ShardInfo{
		ShardNum:       shardNum,
		Weight:         weight,
		LocalAddresses: local,
	}

	if len(remote) > 0 {
		shard.DirNames = dirNames(remote, internalReplication)
		shard.Pool = newShardPool(remote, settings, opts)
	}

	return shard
}

func newShardPool(replicas []Address, settings config.Settings, opts Options) nodeclient.FailoverPool {
	group := make([]nodeclient.Replica, len(replicas))
	for i, addr := range replicas {
		group[i] = nodeclient.Replica{
			Addr:     addr.Key(),
			User:     addr.User,
			Password: addr.Password,
		}
	}

	return nodeclient.NewFailoverPool(nodeclient.PoolConfig{
		Replicas:       group,
		Dialer:         opts.Dialer,
		Policy:         opts.Policy,
		Logger:         opts.Logger,
		ConnectTimeout: Saturate(settings.ConnectTimeout(), settings.MaxConnectTimeout()),
		MaxRetries:     settings.MaxRetries,
	})
}

// dirNames returns the bookkeeping directory names for asynchronous writes
// to the shard's remote replicas. With internal replication, the shard
// replicates data between its replicas itself, so a single directory covers
// the whole group; otherwise each replica gets its own.
func dirNames(remote []Address, internalReplication bool) []string {
	keys := make([]string, len(remote))
	for i, addr := range remote {
		keys[i] = addr.Key()
	}

	if internalReplication {
		return []string{strings.Join(keys, ",")}
	}

	return keys
}

// initMisc fills in everything derived from the shard list: the local and
// remote shard counters, the weighted slot table and the fingerprint.
func (c *Cluster) initMisc() {
	c.localShards = 0
	c.remoteShards = 0

	var totalWeight int

	for i := range c.shards {
		// A shard with both local and remote replicas counts as local: the
		// engine prefers in-process execution whenever it is possible.
		if c.shards[i].IsLocal() {
			c.localShards++
		} else {
			c.remoteShards++
		}

		totalWeight += c.shards[i].Weight
	}

	c.slotToShard = make([]int, 0, totalWeight)

	for i := range c.shards {
		for s := 0; s < c.shards[i].Weight; s++ {
			c.slotToShard = append(c.slotToShard, i)
		}
	}

	c.fingerprint = fingerprintOf(c.addressGroups())
}

// addressGroups returns the replica addresses grouped by shard, regardless
// of which view the cluster was built with.
func (c *Cluster) addressGroups() [][]Address {
	if len(c.addressesWithFailover) > 0 {
		return c.addressesWithFailover
	}

	groups := make([][]Address, len(c.addresses))
	for i := range c.addresses {
		groups[i] = []Address{c.addresses[i]}
	}

	return groups
}

// SubCluster returns a new cluster consisting of the single shard at the
// given index of the shard list. The shard keeps its original shard number,
// weight and addresses. The source cluster is not modified.
func (c *Cluster) SubCluster(index int) (*Cluster, error) {
	if index < 0 || index >= len(c.shards) {
		return nil, fmt.Errorf("shard index %d out of range [0, %d)", index, len(c.shards))
	}

	sub := &Cluster{
		shards: []ShardInfo{c.shards[index]},
	}

	if len(c.addressesWithFailover) > 0 {
		sub.addressesWithFailover = [][]Address{c.addressesWithFailover[index]}
	} else if len(c.addresses) > 0 {
		sub.addresses = []Address{c.addresses[index]}
	}

	sub.initMisc()

	return sub, nil
}

// ShardForKey returns the index into the shard list of the shard
// responsible for the given sharding key. Shards are selected with
// frequency proportional to their weight; zero-weight shards are never
// selected.
func (c *Cluster) ShardForKey(key []byte) (int, error) {
	if len(c.shards) == 0 {
		return 0, ErrEmptyCluster
	}

	if len(c.slotToShard) == 0 {
		return 0, ErrNoRoutableShards
	}

	h := murmur3.Sum64(key)

	return c.slotToShard[h%uint64(len(c.slotToShard))], nil
}

// ShardsInfo returns the cluster's shards in declaration order.
func (c *Cluster) ShardsInfo() []ShardInfo {
	shards := make([]ShardInfo, len(c.shards))
	copy(shards, c.shards)

	return shards
}

// AnyShard returns an arbitrary shard of the cluster.
func (c *Cluster) AnyShard() (ShardInfo, error) {
	if len(c.shards) == 0 {
		return ShardInfo{}, ErrEmptyCluster
	}

	return c.shards[0], nil
}

// Addresses returns the flat address view: one address per shard. Empty
// unless the cluster was built from flat node entries.
func (c *Cluster) Addresses() []Address {
	addrs := make([]Address, len(c.addresses))
	copy(addrs, c.addresses)

	return addrs
}

// AddressesWithFailover returns the grouped address view: the replica
// addresses of each shard. Empty unless the cluster was built from shard
// entries or an explicit replica list.
func (c *Cluster) AddressesWithFailover() [][]Address {
	groups := make([][]Address, len(c.addressesWithFailover))
	for i, group := range c.addressesWithFailover {
		groups[i] = make([]Address, len(group))
		copy(groups[i], group)
	}

	return groups
}

// SlotToShard returns the weighted slot table. Its length equals the sum
// of all shard weights, and shard i occupies a contiguous run of weight[i]
// slots in declaration order.
func (c *Cluster) SlotToShard() []int {
	slots := make([]int, len(c.slotToShard))
	copy(slots, c.slotToShard)

	return slots
}

// Fingerprint returns a stable hash of the ordered set of replica
// addresses. Two clusters built from equivalent configuration share the
// fingerprint, so callers can use it to detect whether a topology change
// requires resharding.
func (c *Cluster) Fingerprint() string {
	return c.fingerprint
}

// ShardCount returns the total number of shards.
func (c *Cluster) ShardCount() int {
	return len(c.shards)
}

// LocalShardCount returns the number of shards with at least one replica
// on the executing node.
func (c *Cluster) LocalShardCount() int {
	return c.localShards
}

// RemoteShardCount returns the number of shards reachable only through
// remote connections.
func (c *Cluster) RemoteShardCount() int {
	return c.remoteShards
}

// Saturate caps the duration v at the given limit, so that a misconfigured
// value cannot stall downstream timer arithmetic. A non-positive limit
// disables the cap.
func Saturate(v, limit time.Duration) time.Duration {
	if limit <= 0 || v <= limit {
		return v
	}

	return limit
}
