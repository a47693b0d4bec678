package database

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_orders/internal/config"
)

func TestLoadScyllaConfigs(t *testing.T) {
	cfg := config.Config{
		ScyllaHosts: []string{"scylla-1", "scylla-2"},
		OrdersKeyspace: config.ScyllaKeyspace{
			Keyspace: "orders_ks", Username: "orders_rw", Password: "secret",
		},
	}

	configs := loadScyllaConfigs(cfg)

	require.Len(t, configs, 1)
	ks, ok := configs["orders_ks"]
	require.True(t, ok)
	assert.Equal(t, []string{"scylla-1", "scylla-2"}, ks.Hosts)
	assert.Equal(t, "orders_rw", ks.Username)
	assert.Equal(t, gocql.Quorum, ks.Consistency)
}

func TestCreateScyllaClusterSSL(t *testing.T) {
	cluster := createScyllaCluster(ScyllaKeyspaceConfig{
		Hosts:      []string{"127.0.0.1"},
		Keyspace:   "orders_ks",
		SSLEnabled: true,
		CACertPath: "/etc/scylla/ca.pem",
	})

	assert.Equal(t, "orders_ks", cluster.Keyspace)
	require.NotNil(t, cluster.SslOpts)
	assert.Equal(t, "/etc/scylla/ca.pem", cluster.SslOpts.CaPath)
}
