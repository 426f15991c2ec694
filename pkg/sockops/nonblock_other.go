//go:build !linux && !freebsd

package sockops

// NonblockAtCreation reports whether non-blocking mode can be requested
// atomically as part of socket creation. On this platform the socket is
// created blocking and switched with SetNonblock afterwards.
const NonblockAtCreation = false

// NonblockFlag is OR-ed into the socket type when NonblockAtCreation is set.
const NonblockFlag = 0
