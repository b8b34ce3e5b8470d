// Package metrics provides Prometheus instrumentation for deployconf.
package metrics

// Resolution outcomes
const (
	ResultOK             = "ok"
	ResultUnknownNetwork = "unknown_network"
	ResultInvalidProfile = "invalid_profile"
)

// NetworkResolve records the outcome of a network resolution.
func NetworkResolve(result string) {
	if !enabled {
		return
	}
	networkResolveTotal.WithLabelValues(result).Inc()
}

// SnapshotRecord records a config snapshot write.
func SnapshotRecord(status string) {
	if !enabled {
		return
	}
	snapshotRecordTotal.WithLabelValues(status).Inc()
}
