package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_production_orders_committed_total",
		Help: "Production orders successfully committed.",
	})

	UnitsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_units_produced_total",
		Help: "Finished product units added to stock by production orders.",
	})

	CommitRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_production_commit_rejected_total",
		Help: "Production order commits rejected, by error kind.",
	}, []string{"kind"})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockflow_production_commit_seconds",
		Help:    "Time spent committing a production order.",
		Buckets: prometheus.DefBuckets,
	})

	StockDeltas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_stock_deltas_applied_total",
		Help: "Individual stock deltas applied to materials.",
	})

	BOMUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_bom_updates_total",
		Help: "Bill of materials replacements.",
	})

	LowStockAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_low_stock_alerts_total",
		Help: "Low stock notifications, by delivery result.",
	}, []string{"result"})
)
