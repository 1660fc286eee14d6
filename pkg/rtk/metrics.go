package rtk

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and gauges the kernel exports: ticks, job
// releases and utilization from the tick accountant, rejections from the
// admission test, context switches from the trampoline, and successful
// mutex_init calls. schedule() itself stays a pure function of kernel state
// and is never instrumented here (spec.md §4.5).
type Metrics struct {
	ticks               prometheus.Counter
	switches            prometheus.Counter
	releases            prometheus.Counter
	admissionRejections prometheus.Counter
	mutexesAllocated    prometheus.Counter
	utilization         prometheus.Gauge
}

// NewMetrics registers the kernel's metric family against reg and returns a
// bundle ready to pass to New.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtk",
			Name:      "ticks_total",
			Help:      "Number of SysTick-equivalent ticks processed.",
		}),
		switches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtk",
			Name:      "context_switches_total",
			Help:      "Number of times the trampoline selected a new thread.",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtk",
			Name:      "job_releases_total",
			Help:      "Number of periodic job releases across all threads.",
		}),
		admissionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtk",
			Name:      "admission_rejections_total",
			Help:      "Number of thread_create calls rejected by ub_admit.",
		}),
		mutexesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtk",
			Name:      "mutexes_allocated_total",
			Help:      "Number of mutex_init calls that succeeded.",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rtk",
			Name:      "utilization_ratio",
			Help:      "Aggregate Liu-Layland utilization of active threads.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.switches, m.releases, m.admissionRejections, m.mutexesAllocated, m.utilization)
	}
	return m
}
