// Package metrics exposes reconciliation activity as Prometheus series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements reconcile.Collector on top of a Prometheus
// registry.
type Collector struct {
	runDuration  prometheus.Histogram
	runsTotal    *prometheus.CounterVec
	batchesTotal *prometheus.CounterVec
	batchRows    *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	tableFails   *prometheus.CounterVec
	tableSkips   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its series with reg.
// Passing prometheus.DefaultRegisterer wires it to the default exposition
// endpoint.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full reconciliation run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "batches_total",
			Help:      "Remote batch requests by table and operation.",
		}, []string{"table", "op"}),
		batchRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "batch_rows_total",
			Help:      "Rows carried in batch requests by table and operation.",
		}, []string{"table", "op"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "retries_total",
			Help:      "Extra attempts spent on batches by table and operation.",
		}, []string{"table", "op"}),
		tableFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "table_failures_total",
			Help:      "Tables whose retries were exhausted in a run.",
		}, []string{"table"}),
		tableSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casesync",
			Subsystem: "reconcile",
			Name:      "table_skipped_total",
			Help:      "Tables skipped because the remote relation is not provisioned.",
		}, []string{"table"}),
	}
	reg.MustRegister(
		c.runDuration,
		c.runsTotal,
		c.batchesTotal,
		c.batchRows,
		c.retriesTotal,
		c.tableFails,
		c.tableSkips,
	)
	return c
}

func (c *Collector) RecordRun(d time.Duration, failedTables int) {
	c.runDuration.Observe(d.Seconds())
	outcome := "ok"
	if failedTables > 0 {
		outcome = "partial"
	}
	c.runsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordBatch(table, op string, size int) {
	c.batchesTotal.WithLabelValues(table, op).Inc()
	c.batchRows.WithLabelValues(table, op).Add(float64(size))
}

func (c *Collector) RecordRetries(table, op string, retries int) {
	c.retriesTotal.WithLabelValues(table, op).Add(float64(retries))
}

func (c *Collector) RecordTableFailure(table string) {
	c.tableFails.WithLabelValues(table).Inc()
}

func (c *Collector) RecordTableSkipped(table string) {
	c.tableSkips.WithLabelValues(table).Inc()
}
