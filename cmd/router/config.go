package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sqlrouter/pkg/routing"
)

// Config holds the router configuration.
type Config struct {
	BindAddress           string   `json:"bind_address,omitempty"`            // listen address for clients
	BindPort              uint16   `json:"bind_port"`                         // listen port for clients
	Destinations          []string `json:"destinations"`                      // backend host:port list, in preference order
	RoutingStrategy       string   `json:"routing_strategy"`                  // destination rotation strategy
	Mode                  string   `json:"mode,omitempty"`                    // declared access mode
	ConnectTimeoutSeconds int      `json:"connect_timeout_seconds,omitempty"` // per-candidate backend connect budget
	MaxConnections        int      `json:"max_connections,omitempty"`         // concurrent client cap
}

// LoadConfig reads and parses config file.
func LoadConfig(configPath string) (*Config, error) {
	// Use default config path (./config.json) if none provided
	if configPath == "" {
		configPath = "./config.json"
	}

	// Get absolute path for clearer error messages
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %v", err)
	}

	// Check if config file exists
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found at %s", absPath)
	}

	// Read and parse the configuration file
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", absPath, err)
	}

	config := new(Config)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", absPath, err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required config fields against the name registry.
func (config *Config) Validate() error {
	if config.BindPort == 0 {
		return fmt.Errorf("bind_port is required")
	}
	if len(config.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}
	for _, dest := range config.Destinations {
		if _, err := parseDestination(dest); err != nil {
			return err
		}
	}

	strategy := routing.StrategyFromName(config.RoutingStrategy)
	if strategy == routing.StrategyUndefined {
		return fmt.Errorf("routing_strategy %q is invalid; valid strategies are %s",
			config.RoutingStrategy, routing.StrategyNames(false))
	}
	if strategy == routing.StrategyRoundRobinWithFallback {
		// fallback rotation needs a metadata-driven primary/secondary split
		return fmt.Errorf("routing_strategy round-robin-with-fallback requires metadata-cache routing; valid strategies are %s",
			routing.StrategyNames(false))
	}

	if config.Mode != "" && routing.AccessModeFromName(config.Mode) == routing.ModeUndefined {
		return fmt.Errorf("mode %q is invalid; valid modes are %s",
			config.Mode, routing.AccessModeNames())
	}

	return nil
}

// BindAddr returns the client-facing listen address, applying the default
// bind address when none is configured.
func (config *Config) BindAddr() string {
	addr := config.BindAddress
	if addr == "" {
		addr = routing.DefaultBindAddress
	}
	return net.JoinHostPort(addr, strconv.Itoa(int(config.BindPort)))
}

// ConnectTimeout returns the per-candidate backend connect budget.
func (config *Config) ConnectTimeout() time.Duration {
	if config.ConnectTimeoutSeconds <= 0 {
		return routing.DefaultDestinationConnectTimeout
	}
	return time.Duration(config.ConnectTimeoutSeconds) * time.Second
}

// MaxClientConnections returns the concurrent client cap.
func (config *Config) MaxClientConnections() int {
	if config.MaxConnections <= 0 {
		return routing.DefaultMaxConnections
	}
	return config.MaxConnections
}

// DestinationAddrs returns the parsed destination list. Validate must have
// accepted the config first.
func (config *Config) DestinationAddrs() []routing.TCPAddress {
	addrs := make([]routing.TCPAddress, 0, len(config.Destinations))
	for _, dest := range config.Destinations {
		addr, err := parseDestination(dest)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

func parseDestination(s string) (routing.TCPAddress, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return routing.TCPAddress{}, fmt.Errorf("invalid destination %q: %v", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return routing.TCPAddress{}, fmt.Errorf("invalid destination port in %q", s)
	}
	return routing.TCPAddress{Host: host, Port: uint16(port)}, nil
}
