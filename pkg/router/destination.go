package router

import (
	"net"
	"os"

	"github.com/rs/zerolog/log"

	"sqlrouter/pkg/routing"
	"sqlrouter/pkg/sockops"
)

// DestinationStat is a point-in-time view of one destination, for
// operator-facing output.
type DestinationStat struct {
	Destination   routing.TCPAddress
	ConnectErrors uint64
	Degraded      bool
}

// Stats snapshots per-destination connect error counters.
func (r *Router) Stats() []DestinationStat {
	stats := make([]DestinationStat, len(r.destinations))
	for i, dest := range r.destinations {
		n := r.errCounts[i].Load()
		stats[i] = DestinationStat{
			Destination:   dest,
			ConnectErrors: n,
			Degraded:      n >= routing.DefaultMaxConnectErrors,
		}
	}
	return stats
}

// rotation returns destination indexes in the order this client connection
// should try them.
//
// first-available always starts at the front; round-robin advances the
// starting index on every connection; next-available starts where the
// cursor last stopped, leaving failed destinations permanently behind.
func (r *Router) rotation() []int {
	n := len(r.destinations)

	start := 0
	switch r.strategy {
	case routing.StrategyRoundRobin:
		start = int((r.next.Add(1) - 1) % uint64(n))
	case routing.StrategyNextAvailable:
		start = int(r.next.Load() % uint64(n))
	}

	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		order = append(order, (start+i)%n)
	}
	return order
}

// connectAny tries destinations in strategy order until one yields an
// established backend connection. It returns the last failure code when
// every destination fails.
func (r *Router) connectAny() (net.Conn, routing.TCPAddress, byte) {
	lastCode := routing.ErrConnectionRefused

	for _, i := range r.rotation() {
		dest := r.destinations[i]

		fd, code := r.connector.Connect(dest, r.ConnectTimeout)
		if code != routing.ErrNone {
			lastCode = code
			r.errCounts[i].Add(1)
			if r.strategy == routing.StrategyNextAvailable {
				r.next.Store(uint64(i + 1))
			}
			log.Debug().
				Str("destination", dest.String()).
				Str("error", routing.ErrorName(code)).
				Msg("Failed connecting to destination")
			continue
		}

		conn, err := fdToConn(fd)
		if err != nil {
			log.Error().Err(err).Str("destination", dest.String()).Msg("Failed wrapping backend socket")
			lastCode = routing.ErrOptionSetFailed
			continue
		}
		return conn, dest, routing.ErrNone
	}

	return nil, routing.TCPAddress{}, lastCode
}

// fdToConn promotes an established descriptor into a net.Conn. FileConn
// duplicates the descriptor, so the original is always released here.
func fdToConn(fd int) (net.Conn, error) {
	if fd == sockops.InvalidSocket {
		return nil, os.ErrInvalid
	}

	f := os.NewFile(uintptr(fd), "backend")
	defer f.Close()

	return net.FileConn(f)
}
