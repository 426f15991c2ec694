package routing

import (
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"sqlrouter/pkg/resolver"
	"sqlrouter/pkg/sockops"
)

// Connector establishes one backend connection per call. It holds no
// mutable state beyond its two injected capabilities, so a single
// instance is shared by all routing workers without locking.
type Connector struct {
	sock sockops.SockOps
	res  resolver.Resolver
}

// NewConnector creates a connector using the given socket capability and
// resolver. Production wiring passes sockops.RealSockOps and a system
// resolver; tests pass fakes.
func NewConnector(sock sockops.SockOps, res resolver.Resolver) *Connector {
	return &Connector{sock: sock, res: res}
}

// Connect resolves addr and attempts a TCP connection to each candidate
// endpoint in resolver order, granting every candidate its own
// connectTimeout window. On success the returned descriptor is blocking,
// has TCP_NODELAY enabled, and is owned by the caller. On failure it
// returns sockops.InvalidSocket and a routing error code; every socket
// created along the way has been closed.
func (c *Connector) Connect(addr TCPAddress, connectTimeout time.Duration) (int, byte) {
	endpoints, err := c.res.Resolve(addr.Host, addr.Port)
	if err != nil {
		log.Debug().Err(err).Str("addr", addr.String()).Msg("Failed resolving backend address")
		return sockops.InvalidSocket, ErrResolutionFailed
	}

	sock := sockops.InvalidSocket
	timedOut := false

	for _, ep := range endpoints {
		sotype := ep.SockType
		if sockops.NonblockAtCreation {
			// skips the extra fcntl round trip where the platform allows it
			sotype |= sockops.NonblockFlag
		}

		fd, err := c.sock.Socket(ep.Family, sotype, ep.Protocol)
		if err != nil {
			log.Error().Err(err).Msg("Failed opening socket")
			continue
		}
		sock = fd

		if err := c.sock.SetNonblock(sock, true); err != nil {
			log.Warn().Err(err).Str("endpoint", ep.String()).Msg("Failed switching socket to non-blocking")
			c.sock.Close(sock)
			sock = sockops.InvalidSocket
			continue
		}

		err = c.sock.Connect(sock, ep.Addr)
		if err == nil {
			// connected on the spot
			break
		}

		if err == unix.EINPROGRESS || err == unix.EWOULDBLOCK {
			waitErr := c.sock.WaitWritable(sock, connectTimeout)
			if waitErr != nil {
				log.Warn().Err(waitErr).Str("addr", addr.String()).Msg("Timeout reached trying to connect to backend")
				if waitErr == unix.ETIMEDOUT {
					timedOut = true
				}
			} else if statusErr := c.sock.ConnectStatus(sock); statusErr == nil {
				// handshake finished successfully
				break
			} else {
				log.Debug().Err(statusErr).Str("endpoint", ep.String()).Str("addr", addr.String()).Msg("Failed connect() to backend")
			}
		} else {
			log.Debug().Err(err).Str("endpoint", ep.String()).Str("addr", addr.String()).Msg("Failed connect() to backend")
		}

		// not the winner, close before trying the next candidate
		c.sock.Close(sock)
		sock = sockops.InvalidSocket
	}

	if sock == sockops.InvalidSocket {
		// all candidates failed
		if timedOut {
			return sockops.InvalidSocket, ErrTimedOut
		}
		return sockops.InvalidSocket, ErrConnectionRefused
	}

	// back to blocking; the database wire protocol is synchronous and does
	// no further non-blocking I/O on this socket
	if err := c.sock.SetNonblock(sock, false); err != nil {
		log.Debug().Err(err).Msg("Failed switching backend socket to blocking")
		c.sock.Close(sock)
		return sockops.InvalidSocket, ErrOptionSetFailed
	}

	if err := c.sock.SetsockoptInt(sock, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		log.Debug().Err(err).Msg("Failed setting TCP_NODELAY on backend socket")
		c.sock.Close(sock)
		return sockops.InvalidSocket, ErrOptionSetFailed
	}

	return sock, ErrNone
}
