// Package metrics exposes the gateway's prometheus instrumentation: RPC
// outcomes by status code, active Connect sessions, and per-device
// subscription counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stepherg/catenago/internal/status"
)

// Registry bundles the gateway's collectors. A zero Registry is not usable;
// construct one with New.
type Registry struct {
	RPCCalls           *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	SubscriptionsTotal *prometheus.GaugeVec
}

// New registers the gateway's collectors on reg and returns the Registry
// wrapping them.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		RPCCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catenagw",
			Name:      "rpc_calls_total",
			Help:      "RPC calls by method and resulting status code.",
		}, []string{"method", "status"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "catenagw",
			Name:      "connect_sessions_active",
			Help:      "Number of currently open Connect sessions.",
		}),
		SubscriptionsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "catenagw",
			Name:      "subscriptions_active",
			Help:      "Number of active subscriptions per device slot.",
		}, []string{"slot"}),
	}
	reg.MustRegister(r.RPCCalls, r.ActiveSessions, r.SubscriptionsTotal)
	return r
}

// ObserveRPC records the outcome of a handler call; err may be nil (OK) or
// any error, in which case its status.Code is recovered via mapErrorCode.
func (r *Registry) ObserveRPC(method string, err error) {
	r.RPCCalls.WithLabelValues(method, mapErrorCode(err).String()).Inc()
}

func mapErrorCode(err error) status.Code {
	if err == nil {
		return status.OK
	}
	var ews *status.ExceptionWithStatus
	if status.As(err, &ews) {
		return ews.Status
	}
	return status.UNKNOWN
}
