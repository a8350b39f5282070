package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/stratumdb/stratum/cluster"
)

// GetClustersResponse lists the names of all registered clusters.
type GetClustersResponse struct {
	Clusters []string `json:"clusters"`
}

// GetClusterResponse describes the topology of a single cluster.
type GetClusterResponse struct {
	Name             string  `json:"name"`
	Fingerprint      string  `json:"fingerprint"`
	ShardCount       int     `json:"shard_count"`
	LocalShardCount  int     `json:"local_shard_count"`
	RemoteShardCount int     `json:"remote_shard_count"`
	Shards           []Shard `json:"shards"`
}

// Shard is the wire representation of a single shard.
type Shard struct {
	ShardNum      int      `json:"shard_num"`
	Weight        int      `json:"weight"`
	IsLocal       bool     `json:"is_local"`
	LocalReplicas []string `json:"local_replicas,omitempty"`
	PoolReplicas  []string `json:"pool_replicas,omitempty"`
}

// ErrorResponse is the wire representation of a request failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClustersHandler exposes the topology registry for introspection.
type ClustersHandler struct {
	registry *cluster.Registry
}

func NewClustersHandler(registry *cluster.Registry) *ClustersHandler {
	return &ClustersHandler{
		registry: registry,
	}
}

func (api *ClustersHandler) Register(r chi.Router) {
	r.Get("/clusters", api.getClusters)
	r.Get("/clusters/{name}", api.getCluster)
}

func (api *ClustersHandler) getClusters(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, GetClustersResponse{
		Clusters: api.registry.Names(),
	})
}

func (api *ClustersHandler) getCluster(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	c, err := api.registry.Get(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cluster.ErrNoSuchCluster) {
			status = http.StatusNotFound
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})

		return
	}

	shards := c.ShardsInfo()
	respShards := make([]Shard, len(shards))

	for i, shard := range shards {
		locals := make([]string, len(shard.LocalAddresses))
		for j, addr := range shard.LocalAddresses {
			locals[j] = addr.Key()
		}

		var pool []string
		if shard.HasRemoteConnections() {
			pool = shard.Pool.Addrs()
		}

		respShards[i] = Shard{
			ShardNum:      shard.ShardNum,
			Weight:        shard.Weight,
			IsLocal:       shard.IsLocal(),
			LocalReplicas: locals,
			PoolReplicas:  pool,
		}
	}

	render.JSON(w, r, GetClusterResponse{
		Name:             name,
		Fingerprint:      c.Fingerprint(),
		ShardCount:       c.ShardCount(),
		LocalShardCount:  c.LocalShardCount(),
		RemoteShardCount: c.RemoteShardCount(),
		Shards:           respShards,
	})
}
