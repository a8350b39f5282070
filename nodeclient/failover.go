package nodeclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/stratumdb/stratum/internal/multierror"
)

// ErrNoAliveReplicas is returned by a failover pool when every replica in
// the group was tried and none of them produced a usable connection within
// the retry budget.
var ErrNoAliveReplicas = errors.New("no alive replicas")

// FailoverPool hands out a connection to one live replica of a shard,
// transparently retrying across the replicas of the group.
type FailoverPool interface {
	// GetConn returns a connection to any live replica. The replicas are
	// tried in the order chosen by the pool's selection policy, and each
	// replica gets MaxRetries attempts before the pool gives up with
	// ErrNoAliveReplicas.
	GetConn(ctx context.Context) (Conn, error)

	// Addrs returns the replica addresses of the group in declaration order.
	Addrs() []string

	// Close closes all connections held by the pool.
	Close() error
}

// PoolConfig carries the parameters of a failover pool.
type PoolConfig struct {
	Replicas       []Replica
	Dialer         Dialer
	Policy         SelectionPolicy
	Logger         kitlog.Logger
	ConnectTimeout time.Duration
	MaxRetries     int
}

// DefaultPoolConfig returns a pool config with the policy, timeout and
// retry parameters set to their defaults. Replicas and Dialer must be
// filled in by the caller.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Policy:         &FirstAlive{},
		Logger:         kitlog.NewNopLogger(),
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     3,
	}
}

type failoverPool struct {
	replicas       []Replica
	dialer         Dialer
	policy         SelectionPolicy
	logger         kitlog.Logger
	connectTimeout time.Duration
	maxRetries     int

	mut    sync.Mutex
	conns  map[string]Conn
	closed bool
}

// NewFailoverPool creates a pool over an ordered group of replicas.
func NewFailoverPool(conf PoolConfig) FailoverPool {
	if conf.Policy == nil {
		conf.Policy = &FirstAlive{}
	}

	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	return &failoverPool{
		replicas:       conf.Replicas,
		dialer:         conf.Dialer,
		policy:         conf.Policy,
		logger:         conf.Logger,
		connectTimeout: conf.ConnectTimeout,
		maxRetries:     conf.MaxRetries,
		conns:          make(map[string]Conn),
	}
}

func (p *failoverPool) Addrs() []string {
	addrs := make([]string, len(p.replicas))
	for i, r := range p.replicas {
		addrs[i] = r.Addr
	}

	return addrs
}

func (p *failoverPool) GetConn(ctx context.Context) (Conn, error) {
	attempts := p.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	errs := multierror.New[string]()

	for attempt := 0; attempt < attempts; attempt++ {
		for _, idx := range p.policy.Order(len(p.replicas)) {
			replica := p.replicas[idx]

			conn, err := p.conn(ctx, replica)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				errs.Add(replica.Addr, err)

				level.Warn(
					kitlog.With(p.logger, "replica", replica.Addr),
				).Log("msg", "replica unavailable", "attempt", attempt, "err", err)

				continue
			}

			return conn, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoAliveReplicas, errs.Error())
}

// conn returns a cached connection to the replica, dialing it if the cached
// one is missing or has been closed.
func (p *failoverPool) conn(ctx context.Context, replica Replica) (Conn, error) {
	p.mut.Lock()

	if p.closed {
		p.mut.Unlock()
		return nil, fmt.Errorf("pool is closed")
	}

	if conn, ok := p.conns[replica.Addr]; ok {
		if !conn.IsClosed() {
			p.mut.Unlock()
			return conn, nil
		}

		// The connection was closed manually, so it is not usable anymore.
		delete(p.conns, replica.Addr)
	}

	p.mut.Unlock()

	dialCtx := ctx
	if p.connectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.connectTimeout)

		defer cancel()
	}

	conn, err := p.dialer.DialContext(dialCtx, replica)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", replica.Addr, err)
	}

	p.mut.Lock()
	defer p.mut.Unlock()

	// Another goroutine may have dialed the same replica while we were
	// waiting. Keep the existing connection and discard ours.
	if old, ok := p.conns[replica.Addr]; ok && !old.IsClosed() {
		_ = conn.Close()
		return old, nil
	}

	p.conns[replica.Addr] = conn

	return conn, nil
}

func (p *failoverPool) Close() error {
	p.mut.Lock()
	defer p.mut.Unlock()

	p.closed = true
	errs := multierror.New[string]()

	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs.Add(addr, err)
		}

		delete(p.conns, addr)
	}

	return errs.Combined()
}
