// Package router implements the per-client connection routing loop. It
// accepts client connections, picks a backend destination according to the
// configured routing strategy, establishes the backend connection through
// the connect engine, and relays bytes between the two sockets until
// either side closes.
package router

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sqlrouter/pkg/routing"
)

// BackendConnector establishes one backend connection and returns a ready
// socket descriptor or a routing error code. Satisfied by
// *routing.Connector.
type BackendConnector interface {
	Connect(addr routing.TCPAddress, connectTimeout time.Duration) (int, byte)
}

// Router accepts client connections and forwards them to one of its
// configured destinations.
type Router struct {
	// ConnectTimeout bounds each candidate connect attempt on the backend
	// side. Note that a destination with several resolved endpoints may
	// take up to ConnectTimeout per endpoint.
	ConnectTimeout time.Duration

	// MaxConnections caps concurrently served clients.
	MaxConnections int

	connector    BackendConnector
	destinations []routing.TCPAddress
	strategy     routing.RoutingStrategy

	// next is the rotation cursor shared by round-robin and
	// next-available ordering.
	next      atomic.Uint64
	errCounts []atomic.Uint64

	listener net.Listener
	active   atomic.Int64
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRouter creates a router over the given destinations. Strategy must be
// valid for static routing: round-robin-with-fallback needs a
// metadata-driven topology and is rejected here.
func NewRouter(connector BackendConnector, destinations []routing.TCPAddress, strategy routing.RoutingStrategy) (*Router, error) {
	if len(destinations) == 0 {
		return nil, fmt.Errorf("at least one destination is required")
	}
	switch strategy {
	case routing.StrategyFirstAvailable, routing.StrategyNextAvailable, routing.StrategyRoundRobin:
	default:
		return nil, fmt.Errorf("invalid routing strategy %s; valid strategies are %s",
			strategy.Name(), routing.StrategyNames(false))
	}

	return &Router{
		ConnectTimeout: routing.DefaultDestinationConnectTimeout,
		MaxConnections: routing.DefaultMaxConnections,
		connector:      connector,
		destinations:   destinations,
		strategy:       strategy,
		errCounts:      make([]atomic.Uint64, len(destinations)),
	}, nil
}

// Start begins accepting client connections on the given address.
func (r *Router) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	r.listener = ln

	r.wg.Add(1)
	go r.acceptLoop()
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (r *Router) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Active returns the number of clients currently being served.
func (r *Router) Active() int64 {
	return r.active.Load()
}

// Stop closes the listener and waits for in-flight client sessions to
// drain.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		if r.listener != nil {
			r.listener.Close()
		}
	})
	r.wg.Wait()
}

func (r *Router) acceptLoop() {
	defer r.wg.Done()

	for {
		client, err := r.listener.Accept()
		if err != nil {
			// listener closed
			return
		}

		if r.active.Load() >= int64(r.MaxConnections) {
			log.Warn().Int("max_connections", r.MaxConnections).Msg("Connection limit reached, rejecting client")
			client.Close()
			continue
		}

		r.active.Add(1)
		r.wg.Add(1)
		go func(client net.Conn) {
			defer r.wg.Done()
			defer r.active.Add(-1)
			r.handleClient(client)
		}(client)
	}
}

func (r *Router) handleClient(client net.Conn) {
	defer client.Close()
	sessionID := uuid.New()

	backend, dest, errCode := r.connectAny()
	if errCode != routing.ErrNone {
		log.Error().
			Str("session", sessionID.String()).
			Str("client", client.RemoteAddr().String()).
			Str("error", routing.ErrorName(errCode)).
			Msg("No backend destination reachable")
		return
	}
	defer backend.Close()

	log.Debug().
		Str("session", sessionID.String()).
		Str("client", client.RemoteAddr().String()).
		Str("destination", dest.String()).
		Msg("Client routed to backend")

	relay(client, backend)
}
