// Package observability exposes engine metrics via Prometheus: turns by
// route, suspensions by prompt kind, charges by outcome, and turn duration.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so instrumentation points never need guarding.
type Metrics struct {
	registry *prometheus.Registry

	turns       *prometheus.CounterVec
	suspensions *prometheus.CounterVec
	charges     *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates and registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadenza_turns_total",
				Help: "Total turns processed, by route.",
			},
			[]string{"route"},
		),
		suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadenza_suspensions_total",
				Help: "Total suspensions raised, by prompt kind.",
			},
			[]string{"kind"},
		),
		charges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadenza_charges_total",
				Help: "Total charge attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "cadenza_turn_duration_seconds",
				Help: "Wall time of one engine invocation.",
			},
		),
	}
	m.registry.MustRegister(m.turns, m.suspensions, m.charges, m.duration)
	return m
}

// ObserveTurn records one finished engine invocation.
func (m *Metrics) ObserveTurn(route domain.Route, prompt *domain.Prompt, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(string(route)).Inc()
	m.duration.Observe(elapsed.Seconds())
	if prompt != nil {
		m.suspensions.WithLabelValues(string(prompt.Kind)).Inc()
	}
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentGateway wraps a payment gateway so every charge outcome is
// counted. With nil metrics the gateway is returned untouched.
func (m *Metrics) InstrumentGateway(gw ports.PaymentGateway) ports.PaymentGateway {
	if m == nil {
		return gw
	}
	return &instrumentedGateway{inner: gw, charges: m.charges}
}

type instrumentedGateway struct {
	inner   ports.PaymentGateway
	charges *prometheus.CounterVec
}

func (g *instrumentedGateway) CreateIntent(ctx context.Context, amount float64, payerID int, items []domain.LineItem) (string, error) {
	return g.inner.CreateIntent(ctx, amount, payerID, items)
}

func (g *instrumentedGateway) Charge(ctx context.Context, intentID string, amount float64, payerID int, items []domain.LineItem) (ports.ChargeResult, error) {
	res, err := g.inner.Charge(ctx, intentID, amount, payerID, items)
	switch {
	case err != nil:
		g.charges.WithLabelValues("error").Inc()
	default:
		g.charges.WithLabelValues(string(res.Status)).Inc()
	}
	return res, err
}
