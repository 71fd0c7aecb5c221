package redis

import "strings"

const (
	// KeyProxies holds the JSON snapshot of the validated proxy pool
	KeyProxies = "stopwatch:proxies"
	// KeyStopUsage is the sorted set of on-demand requests per stop
	KeyStopUsage = "stopwatch:stops:usage"
	// KeyPrefixStopSeen is the prefix for the last-request timestamp of a stop
	KeyPrefixStopSeen = "stopwatch:stop:seen:"
)

// ProxiesKey returns the Redis key for the proxy snapshot
func ProxiesKey() string {
	return KeyProxies
}

// StopUsageKey returns the Redis key for the usage leaderboard
func StopUsageKey() string {
	return KeyStopUsage
}

// StopSeenKey returns the Redis key for the last request time of a stop.
// Stop names are free text, so they are lowercased and trimmed first.
func StopSeenKey(stopID string) string {
	return KeyPrefixStopSeen + normalizeStop(stopID)
}

func normalizeStop(stopID string) string {
	return strings.ToLower(strings.TrimSpace(stopID))
}
