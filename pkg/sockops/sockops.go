// Package sockops abstracts the raw socket syscalls used to establish
// backend connections. The connect engine only talks to the SockOps
// interface, so tests can script socket behavior without touching the
// network, and production code shares one stateless syscall-backed
// implementation.
package sockops

import (
	"time"

	"golang.org/x/sys/unix"
)

// InvalidSocket is the sentinel descriptor meaning "no socket".
const InvalidSocket = -1

// SockOps is the set of socket operations the connect engine drives.
// All methods are thin wrappers around single syscalls; implementations
// must be safe for concurrent use by multiple routing workers.
type SockOps interface {
	// Socket creates a socket for the given family, type and protocol.
	Socket(family, sotype, proto int) (int, error)

	// SetNonblock switches the descriptor between blocking and
	// non-blocking mode.
	SetNonblock(fd int, nonblocking bool) error

	// Connect starts a connection attempt to sa. On a non-blocking
	// socket it returns unix.EINPROGRESS while the handshake runs.
	Connect(fd int, sa unix.Sockaddr) error

	// WaitWritable blocks until fd is writable or the timeout expires,
	// returning unix.ETIMEDOUT on expiry.
	WaitWritable(fd int, timeout time.Duration) error

	// ConnectStatus reports the outcome of a finished non-blocking
	// connect, nil meaning the socket is connected.
	ConnectStatus(fd int) error

	// SetsockoptInt sets an integer socket option.
	SetsockoptInt(fd, level, opt, value int) error

	// Close releases the descriptor.
	Close(fd int) error
}

// RealSockOps implements SockOps with direct syscalls. The zero value is
// ready to use and holds no state, so a single instance can be shared by
// every caller.
type RealSockOps struct{}

func (RealSockOps) Socket(family, sotype, proto int) (int, error) {
	return unix.Socket(family, sotype, proto)
}

func (RealSockOps) SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func (RealSockOps) Connect(fd int, sa unix.Sockaddr) error {
	return unix.Connect(fd, sa)
}

// WaitWritable polls for POLLOUT, restarting the poll with the remaining
// budget when interrupted by a signal.
func (RealSockOps) WaitWritable(fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return unix.ETIMEDOUT
		}
		return nil
	}
}

// ConnectStatus reads SO_ERROR, the per-socket slot where the kernel
// parks the result of a non-blocking connect.
func (RealSockOps) ConnectStatus(fd int) error {
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	return nil
}

func (RealSockOps) SetsockoptInt(fd, level, opt, value int) error {
	return unix.SetsockoptInt(fd, level, opt, value)
}

func (RealSockOps) Close(fd int) error {
	return unix.Close(fd)
}
