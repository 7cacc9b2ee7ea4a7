// Package metrics exposes Prometheus counters and gauges for the trading
// loop, served on an optional HTTP listener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradego_signals_generated_total",
		Help: "Signals produced per strategy.",
	}, []string{"strategy"})

	CandidatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradego_candidates_rejected_total",
		Help: "Candidate signals rejected before submission, by stage.",
	}, []string{"stage"})

	TradesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradego_trades_opened_total",
		Help: "Trades confirmed filled.",
	})

	TradesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradego_trades_closed_total",
		Help: "Trades closed by exit reason.",
	}, []string{"reason"})

	EntryTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradego_entry_timeouts_total",
		Help: "Entries expired without a fill confirmation.",
	})

	OrderAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradego_order_anomalies_total",
		Help: "Confirmed orders missing from the gateway without a terminal status.",
	})

	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradego_gateway_errors_total",
		Help: "Gateway call failures by operation.",
	}, []string{"op"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradego_open_positions",
		Help: "Currently open positions.",
	})

	PortfolioPnL = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradego_portfolio_pnl",
		Help: "Portfolio P&L for the current day.",
	}, []string{"kind"})

	CircuitBreaker = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradego_circuit_breaker_active",
		Help: "1 while new admissions are halted by the daily loss breaker.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradego_decision_cycle_seconds",
		Help:    "Wall time of one decision cycle.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// Serve exposes /metrics on addr. Blocks; run in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
