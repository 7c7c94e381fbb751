// Package metrics exposes prometheus counters for the planning engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gmx_plans_total", Help: "Pipeline runs by operation kind and outcome"},
		[]string{"kind", "outcome"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gmx_rejections_total", Help: "Pipeline rejections by reason code"},
		[]string{"reason"},
	)
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gmx_commits_total", Help: "Committed orders by signer result"},
		[]string{"result"},
	)
	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gmx_provider_errors_total", Help: "Market data provider failures by chain"},
		[]string{"chain"},
	)
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gmx_provider_requests_total", Help: "Market data provider requests by chain and endpoint"},
		[]string{"chain", "endpoint"},
	)
)

// Init registers all engine collectors plus the standard Go/process
// collectors on a fresh registry.
func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		PlansTotal, RejectionsTotal, CommitsTotal,
		ProviderErrorsTotal, ProviderRequestsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	return reg
}

// Handler serves the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
