package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sqlrouter/pkg/routing"
)

func validConfig() *Config {
	return &Config{
		BindPort:        6446,
		Destinations:    []string{"db1.example.com:3306", "10.0.0.2:3306"},
		RoutingStrategy: "round-robin",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	c := validConfig()
	c.BindPort = 0
	require.Error(t, c.Validate())

	c = validConfig()
	c.Destinations = nil
	require.Error(t, c.Validate())

	c = validConfig()
	c.Destinations = []string{"no-port"}
	require.Error(t, c.Validate())

	c = validConfig()
	c.RoutingStrategy = "Round-Robin"
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), routing.StrategyNames(false))

	// valid name, but not for static routing
	c = validConfig()
	c.RoutingStrategy = "round-robin-with-fallback"
	require.Error(t, c.Validate())

	c = validConfig()
	c.Mode = "read-only"
	require.NoError(t, c.Validate())

	c.Mode = "readonly"
	require.Error(t, c.Validate())
}

func TestConfigDefaults(t *testing.T) {
	c := validConfig()

	require.Equal(t, "127.0.0.1:6446", c.BindAddr())
	require.Equal(t, routing.DefaultDestinationConnectTimeout, c.ConnectTimeout())
	require.Equal(t, routing.DefaultMaxConnections, c.MaxClientConnections())

	c.BindAddress = "0.0.0.0"
	c.ConnectTimeoutSeconds = 3
	c.MaxConnections = 10
	require.Equal(t, "0.0.0.0:6446", c.BindAddr())
	require.Equal(t, 3*time.Second, c.ConnectTimeout())
	require.Equal(t, 10, c.MaxClientConnections())
}

func TestDestinationAddrs(t *testing.T) {
	c := validConfig()
	addrs := c.DestinationAddrs()
	require.Equal(t, []routing.TCPAddress{
		{Host: "db1.example.com", Port: 3306},
		{Host: "10.0.0.2", Port: 3306},
	}, addrs)
}
