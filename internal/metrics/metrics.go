// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection lifecycle state and reconnect count
//   - Push frame rates by wire event
//   - Spin / purchase / withdrawal settlement outcomes
//   - Settlement durations and dropped-event counts
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConnectionState exports the lifecycle state ordinal
// (0=disconnected .. 4=authenticated, 5=errored).
var ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "wheel",
	Subsystem: "connection",
	Name:      "state",
	Help:      "Connection lifecycle state ordinal.",
})

// Reconnects counts successful reconnections after unexpected closes.
var Reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "connection",
	Name:      "reconnects_total",
	Help:      "Successful reconnections.",
})

// PushFrames counts server push frames by wire event name.
var PushFrames = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "stream",
	Name:      "push_frames_total",
	Help:      "Push frames received, by wire event.",
}, []string{"event"})

// DroppedEvents counts events dropped due to full buffers, by stage.
var DroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "stream",
	Name:      "dropped_events_total",
	Help:      "Events dropped due to full buffers.",
}, []string{"stage"})

// Spins counts spin settlements by source and result.
var Spins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "spin",
	Name:      "settlements_total",
	Help:      "Spin settlements, by source and result.",
}, []string{"source", "result"})

// Purchases counts ticket purchases by result.
var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "spin",
	Name:      "purchases_total",
	Help:      "Ticket purchases, by result.",
}, []string{"result"})

// Withdrawals counts withdrawal settlements by result.
var Withdrawals = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wheel",
	Subsystem: "withdraw",
	Name:      "settlements_total",
	Help:      "Withdrawal settlements, by result.",
}, []string{"result"})

// SettleDuration observes seconds from request to terminal state.
var SettleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "wheel",
	Subsystem: "spin",
	Name:      "settle_duration_seconds",
	Help:      "Time from spin request to terminal state.",
	Buckets:   prometheus.DefBuckets,
})

// Handler returns the scrape handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
