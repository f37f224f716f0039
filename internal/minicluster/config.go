package minicluster

import (
	"time"

	"jobctl/internal/config"
)

// Config holds configuration for the local test cluster.
type Config struct {
	// Prefix namespaces container and network names so several clusters
	// can coexist on one daemon.
	Prefix string
	// ReadyAttempts and ReadyInterval bound the per-component readiness
	// poll after start.
	ReadyAttempts int
	ReadyInterval time.Duration

	ZookeeperImage string
	CassandraImage string
	MasterImage    string
}

// LoadConfigFromEnv loads minicluster configuration from environment
// variables.
func LoadConfigFromEnv() Config {
	return Config{
		Prefix:         config.GetEnv("MINICLUSTER_PREFIX", "jobctl"),
		ReadyAttempts:  config.GetIntEnv("MINICLUSTER_READY_ATTEMPTS", 30),
		ReadyInterval:  config.GetDurationEnv("MINICLUSTER_READY_INTERVAL", 2*time.Second),
		ZookeeperImage: config.GetEnv("MINICLUSTER_ZOOKEEPER_IMAGE", "zookeeper:3.9"),
		CassandraImage: config.GetEnv("MINICLUSTER_CASSANDRA_IMAGE", "cassandra:4.1"),
		MasterImage:    config.GetEnv("MINICLUSTER_MASTER_IMAGE", "cluster-master:latest"),
	}
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "jobctl"
	}
	if c.ReadyAttempts <= 0 {
		c.ReadyAttempts = 30
	}
	if c.ReadyInterval <= 0 {
		c.ReadyInterval = 2 * time.Second
	}
	return c
}
