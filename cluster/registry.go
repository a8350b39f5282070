package cluster

import (
	"errors"
	"fmt"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/stratumdb/stratum/config"
	"github.com/stratumdb/stratum/internal/generic"
	"github.com/stratumdb/stratum/internal/multierror"
)

// ErrNoSuchCluster is returned by Registry.Get for an unknown cluster name.
var ErrNoSuchCluster = errors.New("no such cluster")

// Registry is a named set of clusters built from the remote_servers section
// of the configuration. Lookups never block on network I/O, only on the
// registry lock, and the lock is held only for map accesses.
//
// A reload swaps the whole map in one step, so readers either see the old
// set or the new one, never a mix. Cluster references obtained before a
// reload stay valid for as long as the caller holds them.
type Registry struct {
	mut      sync.Mutex
	clusters map[string]*Cluster
	opts     Options
	logger   kitlog.Logger
}

// NewRegistry builds one cluster per named entry of the configuration. Any
// malformed cluster fails the whole construction: at startup there is no
// previous topology to fall back to.
func NewRegistry(conf *config.Config, opts Options) (*Registry, error) {
	opts = opts.withDefaults()

	clusters, errs := buildClusters(conf, opts)
	if err := errs.Combined(); err != nil {
		return nil, fmt.Errorf("build clusters: %w", err)
	}

	return &Registry{
		clusters: clusters,
		opts:     opts,
		logger:   opts.Logger,
	}, nil
}

func buildClusters(conf *config.Config, opts Options) (map[string]*Cluster, *multierror.Error[string]) {
	clusters := make(map[string]*Cluster, len(conf.RemoteServers))
	errs := multierror.New[string]()

	for name, clusterConf := range conf.RemoteServers {
		c, err := NewFromConfig(name, clusterConf, conf.Settings, opts)
		if err != nil {
			errs.Add(name, err)
			continue
		}

		clusters[name] = c
	}

	return clusters, errs
}

// Get returns the current cluster registered under the given name.
func (r *Registry) Get(name string) (*Cluster, error) {
	r.mut.Lock()
	defer r.mut.Unlock()

	c, ok := r.clusters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchCluster, name)
	}

	return c, nil
}

// Update rebuilds every named cluster from the given configuration and
// replaces the registry contents in one step. A cluster that fails to build
// keeps its previous definition, if any; the error for it is still
// returned so the caller can log it.
func (r *Registry) Update(conf *config.Config) error {
	clusters, errs := buildClusters(conf, r.opts)

	r.mut.Lock()

	for name := range conf.RemoteServers {
		if _, ok := clusters[name]; ok {
			continue
		}

		if old, ok := r.clusters[name]; ok {
			clusters[name] = old

			level.Warn(
				kitlog.With(r.logger, "cluster", name),
			).Log("msg", "cluster rebuild failed, keeping previous definition")
		}
	}

	r.clusters = clusters
	r.mut.Unlock()

	return errs.Combined()
}

// Names returns the names of all registered clusters in sorted order.
func (r *Registry) Names() []string {
	r.mut.Lock()
	names := generic.MapKeys(r.clusters)
	r.mut.Unlock()

	generic.SortSlice(names, false)

	return names
}

// Container returns a copy of the current name-to-cluster mapping.
func (r *Registry) Container() map[string]*Cluster {
	r.mut.Lock()
	defer r.mut.Unlock()

	clusters := make(map[string]*Cluster, len(r.clusters))
	for name, c := range r.clusters {
		clusters[name] = c
	}

	return clusters
}
