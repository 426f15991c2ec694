package routing

import "strings"

// RoutingStrategy selects how destinations are rotated across client
// connections. The zero value is the "not configured" sentinel and is
// never produced by looking up a valid name.
type RoutingStrategy uint8

const (
	StrategyUndefined RoutingStrategy = iota
	StrategyFirstAvailable
	StrategyNextAvailable
	StrategyRoundRobin
	StrategyRoundRobinWithFallback
)

// StrategyFromName maps a canonical strategy name to its value. The match
// is exact and case-sensitive; unknown names yield StrategyUndefined.
func StrategyFromName(name string) RoutingStrategy {
	switch name {
	case "first-available":
		return StrategyFirstAvailable
	case "next-available":
		return StrategyNextAvailable
	case "round-robin":
		return StrategyRoundRobin
	case "round-robin-with-fallback":
		return StrategyRoundRobinWithFallback
	default:
		return StrategyUndefined
	}
}

// Name returns the canonical name of the strategy, or a placeholder for
// the undefined sentinel.
func (s RoutingStrategy) Name() string {
	switch s {
	case StrategyFirstAvailable:
		return "first-available"
	case StrategyNextAvailable:
		return "next-available"
	case StrategyRoundRobin:
		return "round-robin"
	case StrategyRoundRobinWithFallback:
		return "round-robin-with-fallback"
	default:
		return "<not set>"
	}
}

// StrategyNames lists the strategy names accepted for the given routing
// topology, joined for display.
func StrategyNames(metadataCache bool) string {
	if metadataCache {
		// next-available is not supported for metadata-cache routing
		return serialComma([]string{
			"first-available",
			"round-robin",
			"round-robin-with-fallback",
		})
	}

	// round-robin-with-fallback is not supported for static routing
	return serialComma([]string{
		"first-available",
		"next-available",
		"round-robin",
	})
}

// AccessMode declares whether a route serves writes or only reads. The
// zero value is the "not configured" sentinel.
type AccessMode uint8

const (
	ModeUndefined AccessMode = iota
	ModeReadWrite
	ModeReadOnly
)

// AccessModeFromName maps a canonical mode name to its value. The match is
// exact and case-sensitive; unknown names yield ModeUndefined.
func AccessModeFromName(name string) AccessMode {
	switch name {
	case "read-write":
		return ModeReadWrite
	case "read-only":
		return ModeReadOnly
	default:
		return ModeUndefined
	}
}

// Name returns the canonical name of the mode, or a placeholder for the
// undefined sentinel.
func (m AccessMode) Name() string {
	switch m {
	case ModeReadWrite:
		return "read-write"
	case ModeReadOnly:
		return "read-only"
	default:
		return "<not-set>"
	}
}

// AccessModeNames lists all valid access mode names, joined for display.
func AccessModeNames() string {
	return serialComma([]string{"read-write", "read-only"})
}

// serialComma joins items for display: "a", "a and b", "a, b, and c".
func serialComma(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		var b strings.Builder
		for _, item := range items[:len(items)-1] {
			b.WriteString(item)
			b.WriteString(", ")
		}
		b.WriteString("and ")
		b.WriteString(items[len(items)-1])
		return b.String()
	}
}
