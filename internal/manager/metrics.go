package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	engineLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medchatd",
		Subsystem: "engine",
		Name:      "loaded",
		Help:      "1 while the inference engine is resident",
	})

	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medchatd",
		Subsystem: "engine",
		Name:      "loads_total",
		Help:      "Total successful engine loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medchatd",
		Subsystem: "engine",
		Name:      "load_failures_total",
		Help:      "Total failed engine loads",
	})

	loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "medchatd",
		Subsystem: "engine",
		Name:      "load_duration_seconds",
		Help:      "Engine load duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	evictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medchatd",
			Subsystem: "engine",
			Name:      "evictions_total",
			Help:      "Total engine evictions by reason",
		},
		[]string{"reason"},
	)

	reclaimsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medchatd",
		Subsystem: "memory",
		Name:      "reclaims_total",
		Help:      "Total forced memory reclamation passes",
	})

	memoryUsedPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medchatd",
		Subsystem: "memory",
		Name:      "used_percent",
		Help:      "Host memory in use, percent of total, at the last sample",
	})

	residentBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medchatd",
		Subsystem: "memory",
		Name:      "resident_bytes",
		Help:      "Process resident memory at the last sample",
	})

	monitorChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medchatd",
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Memory monitor checks by outcome",
		},
		[]string{"outcome"},
	)

	generationsInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "medchatd",
		Subsystem: "generation",
		Name:      "inflight",
		Help:      "Generations currently streaming",
	})
)

func init() {
	prometheus.MustRegister(engineLoaded, loadsTotal, loadFailuresTotal, loadDuration, evictionsTotal,
		reclaimsTotal, memoryUsedPercent, residentBytes, monitorChecksTotal, generationsInflight)
}
