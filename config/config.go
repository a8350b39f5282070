package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Node describes a single server address within a cluster definition.
// It is used both for flat node entries and for replicas inside a shard.
type Node struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DefaultDatabase string `yaml:"default_database"`
}

// Shard is a group of replicas holding the same slice of data. Replicas form
// a failover group: a query for the shard may be executed on any of them.
type Shard struct {
	Weight              *int   `yaml:"weight"`
	InternalReplication bool   `yaml:"internal_replication"`
	Replicas            []Node `yaml:"replicas"`
}

// ShardWeight returns the declared weight of the shard, defaulting to 1
// when the weight is not set.
func (s *Shard) ShardWeight() int {
	if s.Weight == nil {
		return 1
	}

	return *s.Weight
}

// Cluster is a single named cluster definition. Exactly one of Nodes or
// Shards must be non-empty: flat node entries each become their own
// single-replica shard, while shard entries carry explicit replica groups.
type Cluster struct {
	Nodes  []Node  `yaml:"nodes"`
	Shards []Shard `yaml:"shards"`
}

// Settings carries the connection and retry parameters applied to every
// remote connection built from the topology. Timeouts are configured in
// milliseconds.
type Settings struct {
	ConnectTimeoutMS    int `yaml:"connect_timeout_ms"`
	RequestTimeoutMS    int `yaml:"request_timeout_ms"`
	MaxConnectTimeoutMS int `yaml:"max_connect_timeout_ms"`
	MaxRetries          int `yaml:"max_retries"`
}

// DefaultSettings returns the settings used when the config file does not
// override them.
func DefaultSettings() Settings {
	return Settings{
		ConnectTimeoutMS:    5000,
		RequestTimeoutMS:    10000,
		MaxConnectTimeoutMS: 60000,
		MaxRetries:          3,
	}
}

func (s Settings) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMS) * time.Millisecond
}

func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutMS) * time.Millisecond
}

func (s Settings) MaxConnectTimeout() time.Duration {
	return time.Duration(s.MaxConnectTimeoutMS) * time.Millisecond
}

// Config is the root of the topology configuration file.
type Config struct {
	Settings      Settings           `yaml:"settings"`
	RemoteServers map[string]Cluster `yaml:"remote_servers"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates raw configuration bytes.
func Parse(data []byte) (*Config, error) {
	conf := &Config{
		Settings: DefaultSettings(),
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate checks the structural invariants of the configuration. A cluster
// must use exactly one of the two forms, every shard must have at least one
// replica, and weights must not be negative.
func (c *Config) Validate() error {
	for name, cluster := range c.RemoteServers {
		if err := cluster.validate(); err != nil {
			return fmt.Errorf("cluster %q: %w", name, err)
		}
	}

	return nil
}

func (c *Cluster) validate() error {
	if len(c.Nodes) == 0 && len(c.Shards) == 0 {
		return fmt.Errorf("no nodes or shards defined")
	}

	if len(c.Nodes) > 0 && len(c.Shards) > 0 {
		return fmt.Errorf("nodes and shards are mutually exclusive")
	}

	for i, node := range c.Nodes {
		if err := node.validate(); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}

	for i, shard := range c.Shards {
		if shard.Weight != nil && *shard.Weight < 0 {
			return fmt.Errorf("shard %d: weight must not be negative", i)
		}

		if len(shard.Replicas) == 0 {
			return fmt.Errorf("shard %d: no replicas defined", i)
		}

		for j, replica := range shard.Replicas {
			if err := replica.validate(); err != nil {
				return fmt.Errorf("shard %d: replica %d: %w", i, j, err)
			}
		}
	}

	return nil
}

func (n *Node) validate() error {
	if n.Host == "" {
		return fmt.Errorf("host is required")
	}

	if n.Port <= 0 || n.Port > 65535 {
		return fmt.Errorf("invalid port %d", n.Port)
	}

	return nil
}
