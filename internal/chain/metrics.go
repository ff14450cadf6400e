package chain

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the issuance collectors. Register them once per registry.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	up      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nft_issuer_calls_total",
			Help: "Issuance calls by operation, adapter mode and outcome.",
		}, []string{"op", "mode", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nft_issuer_call_seconds",
			Help:    "Latency of issuance write calls.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"op", "mode"}),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nft_issuer_up",
			Help: "1 when the last connection check succeeded.",
		}),
	}
	reg.MustRegister(m.calls, m.latency, m.up)
	return m
}

// Instrumented records metrics around the write path of an Issuer.
type Instrumented struct {
	Issuer
	metrics *Metrics
	mode    string
}

var _ Issuer = (*Instrumented)(nil)

func Instrument(inner Issuer, m *Metrics, mode string) *Instrumented {
	return &Instrumented{Issuer: inner, metrics: m, mode: mode}
}

func (i *Instrumented) CheckConnection(ctx context.Context) bool {
	ok := i.Issuer.CheckConnection(ctx)
	if ok {
		i.metrics.up.Set(1)
	} else {
		i.metrics.up.Set(0)
	}
	return ok
}

func (i *Instrumented) Mint(ctx context.Context, owner string, slot, value uint64) (MintResult, error) {
	start := time.Now()
	res, err := i.Issuer.Mint(ctx, owner, slot, value)
	result := outcome(err)
	if err == nil && res.Degraded {
		result = "degraded"
	}
	i.observe("mint", result, start)
	return res, err
}

func (i *Instrumented) SetTokenURI(ctx context.Context, tokenID, uri string) (URIResult, error) {
	start := time.Now()
	res, err := i.Issuer.SetTokenURI(ctx, tokenID, uri)
	result := outcome(err)
	if err == nil && res.Skipped {
		result = "skipped"
	}
	i.observe("set_token_uri", result, start)
	return res, err
}

func (i *Instrumented) observe(op, result string, start time.Time) {
	i.metrics.calls.WithLabelValues(op, i.mode, result).Inc()
	i.metrics.latency.WithLabelValues(op, i.mode).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
