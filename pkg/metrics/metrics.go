package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// VersionsCreated counts snapshots by the mutation that produced them (create, update, restore).
	VersionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "documents", Name: "versions_created_total", Help: "Number of document versions written."},
		[]string{"reason"},
	)
	VersionsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "documents", Name: "versions_pruned_total", Help: "Number of versions removed by retention trimming."},
	)
	TrimFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "documents", Name: "trim_failures_total", Help: "Number of retention trims that failed after a successful write."},
	)
	ArchiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "documents", Name: "archive_failures_total", Help: "Number of pruned versions that could not be archived."},
	)
	Restores = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "documents", Name: "restores_total", Help: "Number of successful restores to a previous version."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(VersionsCreated)
	reg.MustRegister(VersionsPruned)
	reg.MustRegister(TrimFailures)
	reg.MustRegister(ArchiveFailures)
	reg.MustRegister(Restores)
}
