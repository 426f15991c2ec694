package router

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"sqlrouter/pkg/routing"
)

// relay pumps bytes between client and backend until either side closes.
// Both connections are closed when it returns.
func relay(client, backend net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	go pump(&wg, backend, client)
	go pump(&wg, client, backend)
	wg.Wait()
}

// pump copies from src to dst, then tears down both connections so the
// opposite pump unblocks.
func pump(wg *sync.WaitGroup, dst, src net.Conn) {
	defer wg.Done()

	buf := make([]byte, routing.DefaultNetBufferLength)
	_, err := io.CopyBuffer(dst, src, buf)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug().Err(err).Msg("Relay ended with error")
	}

	dst.Close()
	src.Close()
}
