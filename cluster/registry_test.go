package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/cluster"
	"github.com/stratumdb/stratum/config"
)

func clusterConf(hosts ...string) config.Cluster {
	conf := config.Cluster{}
	for _, h := range hosts {
		conf.Nodes = append(conf.Nodes, config.Node{Host: h, Port: 9000})
	}

	return conf
}

func registryConf(clusters map[string]config.Cluster) *config.Config {
	return &config.Config{
		Settings:      config.DefaultSettings(),
		RemoteServers: clusters,
	}
}

func TestRegistry_Get(t *testing.T) {
	reg, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("h1"),
		"beta":  clusterConf("h2"),
	}), testOptions())
	require.NoError(t, err)

	c, err := reg.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, 1, c.ShardCount())

	_, err = reg.Get("gamma")
	require.ErrorIs(t, err, cluster.ErrNoSuchCluster)
}

func TestRegistry_Update(t *testing.T) {
	reg, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("h1"),
		"beta":  clusterConf("h2"),
	}), testOptions())
	require.NoError(t, err)

	// A query in flight holds a reference to the old topology.
	oldBeta, err := reg.Get("beta")
	require.NoError(t, err)

	err = reg.Update(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("h1"),
		"delta": clusterConf("h3", "h4"),
	}))
	require.NoError(t, err)

	_, err = reg.Get("beta")
	require.ErrorIs(t, err, cluster.ErrNoSuchCluster)

	delta, err := reg.Get("delta")
	require.NoError(t, err)
	require.Equal(t, 2, delta.ShardCount())

	// The reference obtained before the reload is still usable and
	// describes the topology it was built from.
	require.Equal(t, 1, oldBeta.ShardCount())
	require.Equal(t, "h2:9000", oldBeta.Addresses()[0].Key())
}

func TestRegistry_UpdateKeepsPreviousOnFailure(t *testing.T) {
	reg, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("h1"),
	}), testOptions())
	require.NoError(t, err)

	before, err := reg.Get("alpha")
	require.NoError(t, err)

	// The rebuilt definition of alpha is broken, so the reload reports the
	// error but keeps the previous definition.
	err = reg.Update(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("unresolvable"),
	}))
	require.Error(t, err)

	after, err := reg.Get("alpha")
	require.NoError(t, err)
	require.Same(t, before, after)
}

func TestRegistry_NewFailsOnBadCluster(t *testing.T) {
	_, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("unresolvable"),
	}), testOptions())
	require.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	reg, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"beta":  clusterConf("h1"),
		"alpha": clusterConf("h2"),
		"gamma": clusterConf("h3"),
	}), testOptions())
	require.NoError(t, err)

	require.Equal(t, []string{"alpha", "beta", "gamma"}, reg.Names())
}

func TestRegistry_Container(t *testing.T) {
	reg, err := cluster.NewRegistry(registryConf(map[string]config.Cluster{
		"alpha": clusterConf("h1"),
	}), testOptions())
	require.NoError(t, err)

	container := reg.Container()
	require.Len(t, container, 1)

	// The returned map is a copy: mutating it does not affect the registry.
	delete(container, "alpha")

	_, err = reg.Get("alpha")
	require.NoError(t, err)
}
