package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venue"

// Metrics groups the venue's instruments on a private registry so tests can
// build as many engines as they like.
type Metrics struct {
	registry *prometheus.Registry

	Cycles          prometheus.Counter
	TickFaults      prometheus.Counter
	OrdersSubmitted *prometheus.CounterVec // by order_type
	OrdersRejected  prometheus.Counter
	OrdersCancelled prometheus.Counter
	Trades          prometheus.Counter
	Subscribers     prometheus.Gauge
	SubscriberDrops prometheus.Counter
	PublishDuration prometheus.Histogram
	LastPrice       prometheus.Gauge
	JournalDrops    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "cycles_total",
			Help: "Tick cycles that produced a valid tick.",
		}),
		TickFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "tick_faults_total",
			Help: "Cycles skipped because the generator rejected its price.",
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "orders_submitted_total",
			Help: "Orders accepted into the ledger.",
		}, []string{"order_type"}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "orders_rejected_total",
			Help: "Submissions that failed validation.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "orders_cancelled_total",
			Help: "Orders moved to CANCELLED.",
		}),
		Trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "matching", Name: "trades_total",
			Help: "Trades produced by matching passes.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "subscribers",
			Help: "Live tick subscribers.",
		}),
		SubscriberDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "subscriber_drops_total",
			Help: "Subscribers removed for missing the delivery deadline.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "publish_seconds",
			Help:    "Time spent fanning out one tick.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1},
		}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "market", Name: "last_price",
			Help: "Last traded price of the simulated instrument.",
		}),
		JournalDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "journal", Name: "dropped_total",
			Help: "Journal writes discarded because the backlog was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.Cycles,
		m.TickFaults,
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.OrdersCancelled,
		m.Trades,
		m.Subscribers,
		m.SubscriberDrops,
		m.PublishDuration,
		m.LastPrice,
		m.JournalDrops,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
