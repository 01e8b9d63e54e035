package orderbook

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus counters and gauges the book updates
// as it processes instructions. A nil *Metrics is safe to use: every
// method is a no-op guard away from touching uninitialised fields.
type Metrics struct {
	ordersAdmitted *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	cancels        prometheus.Counter
	modifies       prometheus.Counter
	trades         prometheus.Counter
	tradeVolume    prometheus.Counter
	bookDepth      *prometheus.GaugeVec
}

// NewMetrics registers the book's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the
// default global registry across multiple books.
func NewMetrics(reg prometheus.Registerer, asset string) *Metrics {
	m := &Metrics{
		ordersAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "orders_admitted_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}, []string{"side", "kind"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "orders_rejected_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}, []string{"reason"}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "cancels_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}),
		modifies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "modifies_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}),
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "trades_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}),
		tradeVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "trade_volume_total",
			ConstLabels: prometheus.Labels{"asset": asset},
		}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "bourse",
			Subsystem:   "orderbook",
			Name:        "price_levels",
			ConstLabels: prometheus.Labels{"asset": asset},
		}, []string{"side"}),
	}
	if reg != nil {
		reg.MustRegister(m.ordersAdmitted, m.ordersRejected, m.cancels, m.modifies, m.trades, m.tradeVolume, m.bookDepth)
	}
	return m
}

func (m *Metrics) admitted(side, kind string) {
	if m == nil {
		return
	}
	m.ordersAdmitted.WithLabelValues(side, kind).Inc()
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) cancel() {
	if m == nil {
		return
	}
	m.cancels.Inc()
}

func (m *Metrics) modify() {
	if m == nil {
		return
	}
	m.modifies.Inc()
}

func (m *Metrics) trade(vol float64) {
	if m == nil {
		return
	}
	m.trades.Inc()
	m.tradeVolume.Add(vol)
}

func (m *Metrics) depth(bidLevels, askLevels int) {
	if m == nil {
		return
	}
	m.bookDepth.WithLabelValues("bid").Set(float64(bidLevels))
	m.bookDepth.WithLabelValues("ask").Set(float64(askLevels))
}
