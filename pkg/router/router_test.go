package router

import (
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"sqlrouter/pkg/resolver"
	"sqlrouter/pkg/routing"
	"sqlrouter/pkg/sockops"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// fakeConnector scripts per-destination outcomes. Destinations mapped to
// ErrNone hand out one end of a fresh socketpair so the router can promote
// a real descriptor.
type fakeConnector struct {
	mu    sync.Mutex
	codes map[string]byte
	calls []string
	peers []int
}

func (f *fakeConnector) Connect(addr routing.TCPAddress, _ time.Duration) (int, byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, addr.String())
	code, ok := f.codes[addr.String()]
	if !ok || code != routing.ErrNone {
		if !ok {
			code = routing.ErrConnectionRefused
		}
		return sockops.InvalidSocket, code
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return sockops.InvalidSocket, routing.ErrSocketCreateFailed
	}
	f.peers = append(f.peers, fds[1])
	return fds[0], routing.ErrNone
}

func (f *fakeConnector) closePeers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.peers {
		unix.Close(fd)
	}
	f.peers = nil
}

func testDestinations(n int) []routing.TCPAddress {
	dests := make([]routing.TCPAddress, 0, n)
	for i := 0; i < n; i++ {
		dests = append(dests, routing.TCPAddress{Host: "10.0.0." + strconv.Itoa(i+1), Port: 3306})
	}
	return dests
}

func TestNewRouterValidation(t *testing.T) {
	fake := &fakeConnector{}

	_, err := NewRouter(fake, nil, routing.StrategyRoundRobin)
	require.Error(t, err)

	_, err = NewRouter(fake, testDestinations(2), routing.StrategyUndefined)
	require.Error(t, err)

	// fallback rotation needs a metadata-driven topology
	_, err = NewRouter(fake, testDestinations(2), routing.StrategyRoundRobinWithFallback)
	require.Error(t, err)

	_, err = NewRouter(fake, testDestinations(2), routing.StrategyRoundRobin)
	require.NoError(t, err)
}

func TestRotationFirstAvailable(t *testing.T) {
	r, err := NewRouter(&fakeConnector{}, testDestinations(3), routing.StrategyFirstAvailable)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2}, r.rotation())
	require.Equal(t, []int{0, 1, 2}, r.rotation())
}

func TestRotationRoundRobin(t *testing.T) {
	r, err := NewRouter(&fakeConnector{}, testDestinations(3), routing.StrategyRoundRobin)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2}, r.rotation())
	require.Equal(t, []int{1, 2, 0}, r.rotation())
	require.Equal(t, []int{2, 0, 1}, r.rotation())
	require.Equal(t, []int{0, 1, 2}, r.rotation())
}

func TestNextAvailableLeavesFailedDestinationsBehind(t *testing.T) {
	dests := testDestinations(2)
	fake := &fakeConnector{codes: map[string]byte{
		dests[0].String(): routing.ErrConnectionRefused,
		dests[1].String(): routing.ErrNone,
	}}
	defer fake.closePeers()

	r, err := NewRouter(fake, dests, routing.StrategyNextAvailable)
	require.NoError(t, err)

	conn, dest, code := r.connectAny()
	require.Equal(t, routing.ErrNone, code)
	require.Equal(t, dests[1], dest)
	conn.Close()

	// the cursor moved past the failed destination: it is not retried
	conn, dest, code = r.connectAny()
	require.Equal(t, routing.ErrNone, code)
	require.Equal(t, dests[1], dest)
	conn.Close()

	require.Equal(t, []string{dests[0].String(), dests[1].String(), dests[1].String()}, fake.calls)
}

func TestConnectAnyReturnsLastFailureCode(t *testing.T) {
	dests := testDestinations(2)
	fake := &fakeConnector{codes: map[string]byte{
		dests[0].String(): routing.ErrConnectionRefused,
		dests[1].String(): routing.ErrTimedOut,
	}}

	r, err := NewRouter(fake, dests, routing.StrategyFirstAvailable)
	require.NoError(t, err)

	conn, _, code := r.connectAny()
	require.Nil(t, conn)
	require.Equal(t, routing.ErrTimedOut, code)

	stats := r.Stats()
	require.Equal(t, uint64(1), stats[0].ConnectErrors)
	require.Equal(t, uint64(1), stats[1].ConnectErrors)
	require.False(t, stats[0].Degraded)
}

// End-to-end: a real backend listener, the real socket capability and a
// static resolver, with bytes relayed through the router both ways.
func TestRouterEndToEnd(t *testing.T) {
	backend, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer backend.Close()

	go func() {
		conn, err := backend.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// echo until the client side closes
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	backendPort := uint16(backend.Addr().(*net.TCPAddr).Port)
	sa := &unix.SockaddrInet4{Port: int(backendPort), Addr: [4]byte{127, 0, 0, 1}}
	res := resolver.StaticResolver{Endpoints: []resolver.Endpoint{{
		Family:   unix.AF_INET,
		SockType: unix.SOCK_STREAM,
		Protocol: unix.IPPROTO_TCP,
		Addr:     sa,
	}}}

	connector := routing.NewConnector(sockops.RealSockOps{}, res)
	r, err := NewRouter(connector, []routing.TCPAddress{{Host: "127.0.0.1", Port: backendPort}}, routing.StrategyFirstAvailable)
	require.NoError(t, err)

	require.NoError(t, r.Start("127.0.0.1:0"))
	defer r.Stop()

	client, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	reply := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, "ping", string(reply))

	client.Close()
}
