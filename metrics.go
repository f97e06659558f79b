package authcore

import "sync/atomic"

// MetricID identifies one engine counter. IDs are dense and stable within a
// release; exporters iterate them by definition tables, not by value.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful credential authentications.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential authentications.
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by an active lockout.
	MetricLoginLocked
	// MetricAccountLocked counts lockout transitions.
	MetricAccountLocked
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterDuplicate counts registrations rejected as duplicates.
	MetricRegisterDuplicate
	// MetricRefreshSuccess counts successful token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricReplayDetected counts refresh attempts with already-consumed tokens.
	MetricReplayDetected
	// MetricLogout counts single-session logouts.
	MetricLogout
	// MetricLogoutAll counts logout-all operations.
	MetricLogoutAll
	// MetricAuthSuccess counts accepted request authentications.
	MetricAuthSuccess
	// MetricAuthRejected counts rejected request authentications.
	MetricAuthRejected
	// MetricRevocationSwept counts revocation entries reclaimed by the sweep.
	MetricRevocationSwept
	// MetricRefreshPurged counts refresh rows reclaimed by the sweep.
	MetricRefreshPurged
	// MetricBootstrapAdminCreated counts bootstrap admin provisions.
	MetricBootstrapAdminCreated
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's counter set. Counters are lock-free and padded to
// avoid false sharing on the login hot path.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates the counter set. A disabled instance accepts all calls
// and stays at zero.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments a counter by one.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add increments a counter by n, for sweep batch results.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
