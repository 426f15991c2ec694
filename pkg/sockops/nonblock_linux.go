//go:build linux || freebsd

package sockops

import "golang.org/x/sys/unix"

// NonblockAtCreation reports whether non-blocking mode can be requested
// atomically as part of socket creation, saving a syscall per candidate.
const NonblockAtCreation = true

// NonblockFlag is OR-ed into the socket type when NonblockAtCreation is set.
const NonblockFlag = unix.SOCK_NONBLOCK
