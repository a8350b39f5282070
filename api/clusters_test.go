package api_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/api"
	"github.com/stratumdb/stratum/cluster"
	"github.com/stratumdb/stratum/config"
)

func testRegistry(t *testing.T) *cluster.Registry {
	t.Helper()

	weight := 2

	conf := &config.Config{
		Settings: config.DefaultSettings(),
		RemoteServers: map[string]config.Cluster{
			"analytics": {
				Shards: []config.Shard{
					{
						Weight: &weight,
						Replicas: []config.Node{
							{Host: "local-1", Port: 9000},
							{Host: "remote-1", Port: 9000},
						},
					},
				},
			},
			"logs": {
				Nodes: []config.Node{
					{Host: "remote-2", Port: 9000},
				},
			},
		},
	}

	opts := cluster.Options{
		Resolve: func(host string, port int) (*net.TCPAddr, error) {
			return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: port}, nil
		},
		IsLocal: func(addr cluster.Address) bool {
			return addr.Host == "local-1"
		},
	}

	reg, err := cluster.NewRegistry(conf, opts)
	require.NoError(t, err)

	return reg
}

func TestGetClusters(t *testing.T) {
	router := api.CreateRouter(testRegistry(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clusters", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.GetClustersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"analytics", "logs"}, resp.Clusters)
}

func TestGetCluster(t *testing.T) {
	router := api.CreateRouter(testRegistry(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clusters/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.GetClusterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Equal(t, "analytics", resp.Name)
	require.NotEmpty(t, resp.Fingerprint)
	require.Equal(t, 1, resp.ShardCount)
	require.Equal(t, 1, resp.LocalShardCount)
	require.Equal(t, 0, resp.RemoteShardCount)

	require.Len(t, resp.Shards, 1)
	require.Equal(t, 1, resp.Shards[0].ShardNum)
	require.Equal(t, 2, resp.Shards[0].Weight)
	require.True(t, resp.Shards[0].IsLocal)
	require.Equal(t, []string{"local-1:9000"}, resp.Shards[0].LocalReplicas)
	require.Equal(t, []string{"remote-1:9000"}, resp.Shards[0].PoolReplicas)
}

func TestGetCluster_NotFound(t *testing.T) {
	router := api.CreateRouter(testRegistry(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clusters/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Error, "no such cluster")
}
