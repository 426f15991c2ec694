// Package routing implements destination connection establishment for the
// router. It resolves a logical backend address into candidate endpoints,
// drives a bounded non-blocking connect against each candidate in order,
// and hands the winning socket back fully configured. The package also
// carries the routing-strategy and access-mode name registry consumed by
// configuration parsing.
package routing

import (
	"net"
	"strconv"
	"time"
)

// Default tuning values for routing instances.
const (
	// DefaultWaitTimeout is the idle wait for client activity; 0 disables it.
	DefaultWaitTimeout = 0

	// DefaultMaxConnections caps concurrent client connections per route.
	DefaultMaxConnections = 512

	// DefaultDestinationConnectTimeout bounds each candidate connect attempt.
	DefaultDestinationConnectTimeout = 1 * time.Second

	// DefaultBindAddress is used when no bind address is configured.
	DefaultBindAddress = "127.0.0.1"

	// DefaultNetBufferLength matches the server's default network buffer.
	DefaultNetBufferLength = 16384

	// DefaultMaxConnectErrors is the per-destination error budget before a
	// destination is reported as degraded.
	DefaultMaxConnectErrors = 100

	// DefaultClientConnectTimeout is the handshake budget granted to
	// clients, one second below the server's own connect_timeout.
	DefaultClientConnectTimeout = 9 * time.Second
)

// TCPAddress identifies a logical backend as a host and port. It is passed
// by value and never mutated.
type TCPAddress struct {
	Host string
	Port uint16
}

// String renders the address as host:port, bracketing IPv6 literals.
func (a TCPAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}
