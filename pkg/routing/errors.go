package routing

// Routing error codes. Uses byte values grouped by concern, matching the
// convention used across the router's packages.
const (
	ErrNone byte = 0 // Operation completed successfully

	// Resolution errors (1-9)
	ErrResolutionFailed byte = 1 // Name or service resolution failed

	// Candidate errors (10-19)
	ErrSocketCreateFailed byte = 10 // Socket creation failed for a candidate
	ErrConnectionRefused  byte = 11 // All candidates refused the connection
	ErrTimedOut           byte = 12 // A candidate wait exceeded the connect timeout

	// Finalization errors (20-29)
	ErrOptionSetFailed byte = 20 // Winning socket could not be configured
)

// ErrorName returns a short label for a routing error code, for logs and
// operator-facing output.
func ErrorName(code byte) string {
	switch code {
	case ErrNone:
		return "none"
	case ErrResolutionFailed:
		return "resolution failed"
	case ErrSocketCreateFailed:
		return "socket creation failed"
	case ErrConnectionRefused:
		return "connection refused"
	case ErrTimedOut:
		return "connect timed out"
	case ErrOptionSetFailed:
		return "socket option failed"
	default:
		return "unknown error"
	}
}
